package dataprocessing

import (
	"log/slog"

	"slotledger/internal/errors"
	"slotledger/internal/files"
	"slotledger/pkg/contracts/domain"
)

// SnapshotSource is the read side of the snapshot store.
type SnapshotSource interface {
	ListAll() ([]files.SnapshotFile, error)
	Read(file files.SnapshotFile) (*domain.Snapshot, error)
}

// AggregateStats summarises one Build call.
type AggregateStats struct {
	Snapshots  int
	Records    int
	Machines   int
	Dates      int
	Overwrites int
}

// Aggregator pivots every stored snapshot into a machine × date table of
// composite probabilities.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger uses slog.Default.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "aggregator"))}
}

// Build reads all snapshots from src in listing order (oldest date first)
// and returns the pivot. Machines appear in the order they are first seen.
// A later value for the same machine and date replaces the earlier one.
// An empty store yields an empty table rather than an error. A listing
// failure is returned as is; a snapshot that cannot be read or carries a
// foreign header fails the build as an aggregation error.
func (a *Aggregator) Build(src SnapshotSource) (*domain.AggregateTable, AggregateStats, error) {
	var stats AggregateStats

	entries, err := src.ListAll()
	if err != nil {
		return nil, stats, err
	}

	table := domain.NewAggregateTable()
	if len(entries) == 0 {
		a.logger.Warn("building header-only table",
			slog.String("reason", errors.ErrAggregationInputMissing.Error()))
		return table, stats, nil
	}

	for _, entry := range entries {
		snapshot, err := src.Read(entry)
		if err != nil {
			return nil, stats, errors.NewAggregationError("failed to read snapshot", err).
				WithContext("file", entry.Name)
		}
		label := entry.Date.Format(domain.ColumnDateLayout)
		table.AddDate(label)

		for _, rec := range snapshot.Records {
			if _, exists := table.Value(rec.MachineID, label); exists {
				stats.Overwrites++
			}
			table.Set(rec.MachineID, label, rec.CompositeProbability)
			stats.Records++
		}
		stats.Snapshots++

		a.logger.Debug("snapshot aggregated",
			slog.String("file", entry.Name),
			slog.String("column", label),
			slog.Int("records", snapshot.Len()))
	}

	stats.Machines = len(table.Machines)
	stats.Dates = len(table.Dates)

	a.logger.Info("aggregate table built",
		slog.Int("snapshots", stats.Snapshots),
		slog.Int("records", stats.Records),
		slog.Int("machines", stats.Machines),
		slog.Int("dates", stats.Dates))

	return table, stats, nil
}
