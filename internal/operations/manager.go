package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"slotledger/internal/config"
	"slotledger/internal/dataprocessing"
	"slotledger/internal/errors"
	"slotledger/internal/exporter"
	"slotledger/internal/files"
	"slotledger/internal/infrastructure"
	"slotledger/internal/scraper"
	"slotledger/internal/upload"
	"slotledger/pkg/contracts/domain"
)

// Request describes one run.
type Request struct {
	// Source yields the day's markup.
	Source scraper.Source
	// Date keys the snapshot. The zero value means today.
	Date time.Time
	// StoreDir overrides the configured snapshot directory.
	StoreDir string
	// WorkbookPath overrides the configured aggregate workbook path.
	WorkbookPath string
}

// StepTiming reports how one step went.
type StepTiming struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	DurationMS int64      `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
}

// Result summarises a run. It is returned for failed runs too, with
// FailedStep set and the outputs of the steps that did complete.
type Result struct {
	RunID        string                      `json:"run_id"`
	Status       RunStatus                   `json:"status"`
	FailedStep   string                      `json:"failed_step,omitempty"`
	Date         string                      `json:"date"`
	SnapshotPath string                      `json:"snapshot_path,omitempty"`
	WorkbookPath string                      `json:"workbook_path,omitempty"`
	Records      int                         `json:"records"`
	Machines     int                         `json:"machines"`
	Dates        int                         `json:"dates"`
	Extract      dataprocessing.ExtractStats `json:"extract"`
	Bands        exporter.ClassifyResult     `json:"bands"`
	Steps        []StepTiming                `json:"steps"`
	DurationMS   int64                       `json:"duration_ms"`
	Uploads      []upload.Outcome            `json:"uploads,omitempty"`
	UploadErrors []string                    `json:"upload_errors,omitempty"`
}

// Pipeline runs extract, store, aggregate and classify in order for one
// day's markup. Runs are serialised; the store has a single writer.
type Pipeline struct {
	cfg      *config.Config
	runCfg   *Config
	registry *Registry
	dirs     *files.Manager
	uploader upload.Uploader
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithUploader publishes both artifacts after every successful run.
func WithUploader(u upload.Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithMetrics records run and step metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRunConfig overrides the step timeouts and directory policy.
func WithRunConfig(c *Config) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.runCfg = c
		}
	}
}

// WithClock replaces time.Now when a request has no date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, NewValidationError("config is required")
	}

	p := &Pipeline{
		cfg:      cfg,
		runCfg:   ConfigFrom(cfg),
		registry: NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	p.dirs = files.NewManager("", p.logger)

	wb := cfg.Workbook
	writer := exporter.NewWorkbookWriter(exporter.WorkbookOptions{
		SheetName:      wb.SheetName,
		HeaderLabel:    domain.FieldMachineID,
		Font:           wb.Font,
		RowHeight:      wb.RowHeight,
		MinColumnWidth: wb.MinColumnWidth,
	}, p.logger)
	formatter := exporter.NewFormatter(exporter.FormatOptions{
		Thresholds: exporter.Thresholds{Low: wb.LowThreshold, Mid: wb.MidThreshold},
		LowColor:   wb.LowColor,
		MidColor:   wb.MidColor,
		Font:       wb.Font,
		SheetName:  wb.SheetName,
	}, p.logger)

	steps := []Step{
		NewExtractStep(dataprocessing.NewParser(p.logger), p.logger),
		NewStoreStep(p.logger),
		NewAggregateStep(dataprocessing.NewAggregator(p.logger), writer, p.logger),
		NewClassifyStep(formatter, p.logger),
	}
	for _, step := range steps {
		if err := p.registry.Register(step); err != nil {
			return nil, NewFatalError("failed to register step", err)
		}
	}
	return p, nil
}

// Steps returns the step IDs in execution order.
func (p *Pipeline) Steps() []string {
	return p.registry.ListIDs()
}

// Run executes every step in order and stops at the first failure. Files
// written by completed steps stay on disk. On failure the returned error is
// an *OperationError naming the step, and the Result is still populated.
// Upload failures are reported in Result.UploadErrors and never fail the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)
	logger := p.logger.With(slog.String("run_id", runID))

	if req.Source == nil {
		return nil, NewValidationError("markup source is required")
	}
	req = p.withDefaults(req)

	store, err := p.openStore(req.StoreDir)
	if err != nil {
		return nil, err
	}

	state := NewOperationState(runID, req)
	state.Store = store
	steps := p.registry.List()
	for _, step := range steps {
		state.AddStep(step.ID(), step.Name())
	}

	logger.InfoContext(ctx, "run started",
		slog.String("source", req.Source.Describe()),
		slog.String("date", req.Date.Format(domain.FileDateLayout)),
		slog.String("store_dir", req.StoreDir),
		slog.String("workbook", req.WorkbookPath))

	var runErr *OperationError
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			runErr = NewCancellationError(step.ID(), err)
			state.Fail(step.ID(), runErr)
			break
		}

		logger.InfoContext(ctx, "executing step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := p.executeStep(ctx, state, step); err != nil {
			runErr = WrapError(err, step.ID())
			if ctx.Err() != nil {
				runErr = NewCancellationError(step.ID(), err)
			}
			state.Fail(step.ID(), runErr)
			logger.ErrorContext(ctx, "step failed",
				slog.String("step", step.ID()),
				slog.String("error_type", string(errors.TypeOf(err))),
				slog.String("error", err.Error()))
			break
		}
		state.Advance(step.ID())
	}
	if runErr == nil {
		state.Complete()
	}

	result := p.buildResult(state)
	p.metrics.observeRun(state)

	if runErr != nil {
		logger.ErrorContext(ctx, "run failed",
			slog.String("failed_step", state.FailedStep),
			slog.Int64("duration_ms", result.DurationMS))
		return result, runErr
	}

	logger.InfoContext(ctx, "run completed",
		slog.String("snapshot", result.SnapshotPath),
		slog.String("workbook", result.WorkbookPath),
		slog.Int("records", result.Records),
		slog.Int("machines", result.Machines),
		slog.Int("dates", result.Dates),
		slog.Int("low", result.Bands.Low),
		slog.Int("mid", result.Bands.Mid),
		slog.Int64("duration_ms", result.DurationMS))

	if p.uploader != nil {
		p.publish(ctx, logger, state, result)
	}
	return result, nil
}

func (p *Pipeline) executeStep(ctx context.Context, state *OperationState, step Step) error {
	st := state.GetStep(step.ID())
	st.Start()

	stepCtx, cancel := context.WithTimeout(ctx, p.runCfg.GetStepTimeout(step.ID()))
	defer cancel()

	err := step.Execute(stepCtx, state)
	if err != nil {
		st.Fail(err)
	} else {
		st.Complete()
	}
	p.metrics.observeStep(step.ID(), st.GetStatus(), st.Duration())
	return err
}

func (p *Pipeline) withDefaults(req Request) Request {
	if req.Date.IsZero() {
		req.Date = p.now()
	}
	req.Date = domain.TruncateDay(req.Date)
	if req.StoreDir == "" {
		req.StoreDir = p.cfg.Store.Dir
	}
	if req.WorkbookPath == "" {
		req.WorkbookPath = p.cfg.Workbook.Path
	}
	return req
}

func (p *Pipeline) openStore(dir string) (*files.Store, error) {
	if p.runCfg.CreateStoreDir && !p.dirs.DirExists(dir) {
		if err := p.dirs.CreateDirectory(dir); err != nil {
			return nil, NewFatalError("failed to create store directory",
				errors.NewStorageError("cannot create store directory", err).WithContext("store_dir", dir))
		}
	}

	store, err := files.NewStore(dir, files.StoreOptions{
		FilePrefix: p.cfg.Store.FilePrefix,
		Extension:  p.cfg.Store.Extension,
		Encoding:   p.cfg.Store.Encoding,
		Logger:     p.logger,
	})
	if err != nil {
		return nil, NewFatalError("failed to open store", err)
	}
	return store, nil
}

func (p *Pipeline) buildResult(state *OperationState) *Result {
	result := &Result{
		RunID:        state.ID,
		Status:       state.GetStatus(),
		FailedStep:   state.FailedStep,
		Date:         state.Request.Date.Format(domain.FileDateLayout),
		SnapshotPath: state.SnapshotPath,
		Records:      state.Snapshot.Len(),
		Machines:     state.AggregateStats.Machines,
		Dates:        state.AggregateStats.Dates,
		Extract:      state.ExtractStats,
		Bands:        state.Bands,
		DurationMS:   state.Duration().Milliseconds(),
	}
	if state.Table != nil {
		result.WorkbookPath = state.Request.WorkbookPath
	}
	for _, st := range state.Steps() {
		result.Steps = append(result.Steps, StepTiming{
			ID:         st.ID,
			Name:       st.Name,
			Status:     st.GetStatus(),
			DurationMS: st.Duration().Milliseconds(),
			Error:      st.Error,
		})
	}
	return result
}

// publish uploads the snapshot and the workbook concurrently. Failures are
// collected on the result; local files are never touched.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, state *OperationState, result *Result) {
	message := upload.CommitMessage(state.Request.Date)
	artifacts := []struct {
		kind  string
		local string
		dest  string
	}{
		{"snapshot", result.SnapshotPath, path.Join(p.cfg.Upload.SnapshotPrefix, filepath.Base(result.SnapshotPath))},
		{"workbook", result.WorkbookPath, path.Join(p.cfg.Upload.WorkbookPrefix, filepath.Base(result.WorkbookPath))},
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, a := range artifacts {
		g.Go(func() error {
			out, err := p.uploader.Upload(ctx, a.local, a.dest, message)
			p.metrics.observeUpload(a.kind, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WarnContext(ctx, "artifact upload failed",
					slog.String("artifact", a.kind),
					slog.String("dest", a.dest),
					slog.String("error", err.Error()))
				result.UploadErrors = append(result.UploadErrors, fmt.Sprintf("%s: %v", a.kind, err))
				return nil
			}
			result.Uploads = append(result.Uploads, out)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Uploads, func(i, j int) bool { return result.Uploads[i].Dest < result.Uploads[j].Dest })
	sort.Strings(result.UploadErrors)
}
