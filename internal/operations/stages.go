package operations

import (
	"bytes"
	"context"
	"log/slog"

	"slotledger/internal/dataprocessing"
	"slotledger/internal/errors"
	"slotledger/internal/exporter"
)

// ExtractStep fetches the markup and extracts the day's snapshot.
type ExtractStep struct {
	parser *dataprocessing.Parser
	logger *slog.Logger
}

// NewExtractStep creates the extract step
func NewExtractStep(parser *dataprocessing.Parser, logger *slog.Logger) *ExtractStep {
	return &ExtractStep{parser: parser, logger: logger}
}

// ID implements Step
func (s *ExtractStep) ID() string { return StepIDExtract }

// Name implements Step
func (s *ExtractStep) Name() string { return "Extract rows" }

// Execute implements Step
func (s *ExtractStep) Execute(ctx context.Context, state *OperationState) error {
	src := state.Request.Source
	if src == nil {
		return errors.NewAppValidationError("no markup source")
	}

	markup, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "markup fetched",
		slog.String("source", src.Describe()),
		slog.Int("bytes", len(markup)))

	snapshot, stats, err := s.parser.Extract(bytes.NewReader(markup), state.Request.Date)
	if err != nil {
		return err
	}
	state.Snapshot = snapshot
	state.ExtractStats = stats
	return nil
}

// StoreStep persists the extracted snapshot under the run's date.
type StoreStep struct {
	logger *slog.Logger
}

// NewStoreStep creates the store step
func NewStoreStep(logger *slog.Logger) *StoreStep {
	return &StoreStep{logger: logger}
}

// ID implements Step
func (s *StoreStep) ID() string { return StepIDStore }

// Name implements Step
func (s *StoreStep) Name() string { return "Persist snapshot" }

// Execute implements Step
func (s *StoreStep) Execute(ctx context.Context, state *OperationState) error {
	path, err := state.Store.Write(state.Snapshot)
	if err != nil {
		return err
	}
	state.SnapshotPath = path
	return nil
}

// AggregateStep rebuilds the machine × date workbook from every snapshot.
type AggregateStep struct {
	aggregator *dataprocessing.Aggregator
	writer     *exporter.WorkbookWriter
	logger     *slog.Logger
}

// NewAggregateStep creates the aggregate step
func NewAggregateStep(aggregator *dataprocessing.Aggregator, writer *exporter.WorkbookWriter, logger *slog.Logger) *AggregateStep {
	return &AggregateStep{aggregator: aggregator, writer: writer, logger: logger}
}

// ID implements Step
func (s *AggregateStep) ID() string { return StepIDAggregate }

// Name implements Step
func (s *AggregateStep) Name() string { return "Aggregate workbook" }

// Execute implements Step
func (s *AggregateStep) Execute(ctx context.Context, state *OperationState) error {
	table, stats, err := s.aggregator.Build(state.Store)
	if err != nil {
		return err
	}
	state.Table = table
	state.AggregateStats = stats

	if err := s.writer.Write(table, state.Request.WorkbookPath); err != nil {
		return errors.NewStorageError("failed to write workbook", err).
			WithContext("path", state.Request.WorkbookPath)
	}
	return nil
}

// ClassifyStep fills workbook cells by threshold band.
type ClassifyStep struct {
	formatter *exporter.Formatter
	logger    *slog.Logger
}

// NewClassifyStep creates the classify step
func NewClassifyStep(formatter *exporter.Formatter, logger *slog.Logger) *ClassifyStep {
	return &ClassifyStep{formatter: formatter, logger: logger}
}

// ID implements Step
func (s *ClassifyStep) ID() string { return StepIDClassify }

// Name implements Step
func (s *ClassifyStep) Name() string { return "Classify cells" }

// Execute implements Step
func (s *ClassifyStep) Execute(ctx context.Context, state *OperationState) error {
	bands, err := s.formatter.FormatFile(state.Request.WorkbookPath)
	if err != nil {
		return err
	}
	state.Bands = bands
	return nil
}
