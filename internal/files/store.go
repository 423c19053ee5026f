package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "slotledger/internal/errors"
	"slotledger/internal/exporter"
	"slotledger/pkg/contracts/domain"
)

// ErrForeignHeader is returned by Read when a snapshot file lacks one of
// the record columns.
var ErrForeignHeader = errors.New("invalid snapshot header")

// Store is a flat directory holding one CSV snapshot per calendar date.
// It never creates its directory; callers that want one created do so
// before the first Write.
type Store struct {
	dir       string
	discovery *Discovery
	csv       *exporter.CSVWriter
	logger    *slog.Logger
}

// StoreOptions configures file naming and text encoding.
type StoreOptions struct {
	FilePrefix string
	Extension  string
	Encoding   string
	Logger     *slog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, opts StoreOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	csvWriter, err := exporter.NewCSVWriter(opts.Encoding, logger)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid store encoding", err)
	}
	return &Store{
		dir:       dir,
		discovery: NewDiscovery(opts.FilePrefix, opts.Extension),
		csv:       csvWriter,
		logger:    logger.With(slog.String("component", "snapshot_store"), slog.String("store_dir", dir)),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path used for date.
func (s *Store) Path(date time.Time) string {
	return filepath.Join(s.dir, s.discovery.FileName(date))
}

// Write persists the snapshot, replacing any earlier file for its date.
// It returns the written path.
func (s *Store) Write(snapshot *domain.Snapshot) (string, error) {
	if snapshot == nil {
		return "", apperrors.NewAppValidationError("snapshot is nil")
	}
	if err := s.checkDir(); err != nil {
		return "", err
	}

	path := s.Path(snapshot.Date)
	records := make([][]string, 0, snapshot.Len())
	for _, rec := range snapshot.Records {
		records = append(records, rec.Values())
	}

	err := s.csv.WriteFile(path, exporter.WriteOptions{
		Headers: domain.RecordFields,
		Records: records,
	})
	if err != nil {
		var unencodable *exporter.UnencodableError
		if errors.As(err, &unencodable) {
			return "", s.encodingError(snapshot, unencodable).WithContext("path", path)
		}
		return "", apperrors.NewStorageError("failed to write snapshot", err).
			WithContext("path", path)
	}

	s.logger.Info("snapshot written",
		slog.String("path", path),
		slog.String("date", snapshot.Date.Format(domain.FileDateLayout)),
		slog.Int("records", snapshot.Len()),
		slog.String("encoding", s.csv.EncodingName()))
	return path, nil
}

// encodingError names the machine and field holding the text the store
// encoding could not represent.
func (s *Store) encodingError(snapshot *domain.Snapshot, cause *exporter.UnencodableError) *apperrors.AppError {
	field := ""
	if cause.Column >= 0 && cause.Column < len(domain.RecordFields) {
		field = domain.RecordFields[cause.Column]
	}
	machineID := ""
	if cause.Row >= 0 && cause.Row < snapshot.Len() {
		machineID = snapshot.Records[cause.Row].MachineID
	}

	s.logger.Warn("snapshot text not representable in store encoding",
		slog.String("encoding", cause.Encoding),
		slog.String("machine_id", machineID),
		slog.String("field", field),
		slog.String("value", cause.Value))

	message := fmt.Sprintf("field %s of machine %q cannot be stored as %s", field, machineID, cause.Encoding)
	return apperrors.NewEncodingError(message, cause).
		WithContext("machine_id", machineID).
		WithContext("field", field).
		WithContext("encoding", cause.Encoding)
}

// ListAll returns every snapshot file currently present, oldest date first.
// Files whose names do not match the snapshot pattern are left out.
func (s *Store) ListAll() ([]SnapshotFile, error) {
	if err := s.checkDir(); err != nil {
		return nil, err
	}
	files, err := s.discovery.FindSnapshotFiles(s.dir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list snapshots", err).
			WithContext("store_dir", s.dir)
	}
	return files, nil
}

// Read loads one snapshot file. Columns are located by header name, rows
// shorter than the header are padded with empty values, and a repeated
// machine id keeps the last row. A file that cannot be read is a storage
// error; one with a foreign header wraps ErrForeignHeader.
func (s *Store) Read(file SnapshotFile) (*domain.Snapshot, error) {
	rows, err := s.csv.ReadFile(file.Path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read snapshot", err).
			WithContext("path", file.Path)
	}

	snapshot := domain.NewSnapshot(file.Date)
	if len(rows) == 0 {
		s.logger.Warn("snapshot file is empty", slog.String("path", file.Path))
		return snapshot, nil
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", file.Path, ErrForeignHeader, err)
	}

	for _, row := range rows[1:] {
		values := make([]string, domain.FieldCount)
		for field, col := range index {
			if col < len(row) {
				values[field] = row[col]
			}
		}
		snapshot.Put(domain.RecordFromValues(values))
	}
	return snapshot, nil
}

// headerIndex maps each record field position to its column in header.
func headerIndex(header []string) ([]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	index := make([]int, domain.FieldCount)
	for i, name := range domain.RecordFields {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		index[i] = col
	}
	return index, nil
}

func (s *Store) checkDir() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return apperrors.NewStorageError("store directory unavailable", err).
			WithContext("store_dir", s.dir)
	}
	if !info.IsDir() {
		return apperrors.NewStorageError("store path is not a directory", nil).
			WithContext("store_dir", s.dir)
	}
	return nil
}
