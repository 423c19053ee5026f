package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is prepended when WriteOptions.BOMPrefix is set on a UTF-8 writer.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter reads and writes CSV files in one fixed text encoding.
type CSVWriter struct {
	encoding     encoding.Encoding
	encodingName string
	logger       *slog.Logger
}

// NewCSVWriter creates a CSV writer for the named encoding (for example
// "shift_jis", "windows-31j", "euc-jp", "utf-8").
func NewCSVWriter(encodingName string, logger *slog.Logger) (*CSVWriter, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		encoding:     enc,
		encodingName: encodingName,
		logger:       logger.With(slog.String("component", "csv_writer")),
	}, nil
}

// LookupEncoding resolves an IANA/WHATWG encoding name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// EncodingName returns the configured encoding name.
func (w *CSVWriter) EncodingName() string {
	return w.encodingName
}

func (w *CSVWriter) isUTF8() bool {
	return w.encoding == unicode.UTF8
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 only
}

// UnencodableError reports a value the writer's encoding cannot represent.
// Row is the index into WriteOptions.Records, or -1 for the header row.
type UnencodableError struct {
	Encoding string
	Row      int
	Column   int
	Value    string
	Err      error
}

func (e *UnencodableError) Error() string {
	where := fmt.Sprintf("record %d", e.Row)
	if e.Row < 0 {
		where = "header"
	}
	return fmt.Sprintf("%s cannot represent %q (%s, column %d)", e.Encoding, e.Value, where, e.Column)
}

func (e *UnencodableError) Unwrap() error {
	return e.Err
}

// Write encodes headers and records to dst. Every value is checked against
// the encoding first, so an *UnencodableError leaves dst untouched.
func (w *CSVWriter) Write(dst io.Writer, options WriteOptions) error {
	if err := w.checkRepresentable(options); err != nil {
		return err
	}

	if options.BOMPrefix && w.isUTF8() {
		if _, err := dst.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	encoded := transform.NewWriter(dst, w.encoding.NewEncoder())
	writer := csv.NewWriter(encoded)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to encode csv as %s: %w", w.encodingName, err)
	}
	if err := encoded.Close(); err != nil {
		return fmt.Errorf("failed to encode csv as %s: %w", w.encodingName, err)
	}
	return nil
}

func (w *CSVWriter) checkRepresentable(options WriteOptions) error {
	if w.isUTF8() {
		return nil
	}
	encoder := w.encoding.NewEncoder()
	check := func(row int, values []string) error {
		for col, v := range values {
			if _, err := encoder.String(v); err != nil {
				return &UnencodableError{Encoding: w.encodingName, Row: row, Column: col, Value: v, Err: err}
			}
		}
		return nil
	}

	if err := check(-1, options.Headers); err != nil {
		return err
	}
	for i, record := range options.Records {
		if err := check(i, record); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile replaces filePath with the encoded CSV. The parent directory
// must already exist. Content goes to a temporary file in the same
// directory which is renamed over the target once complete.
func (w *CSVWriter) WriteFile(filePath string, options WriteOptions) error {
	dir := filepath.Dir(filePath)

	w.logger.Debug("writing csv file",
		slog.String("file_path", filePath),
		slog.String("encoding", w.encodingName),
		slog.Int("record_count", len(options.Records)))

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	buf := bufio.NewWriter(tmp)
	if err := w.Write(buf, options); err != nil {
		cleanup()
		return err
	}
	if err := buf.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filePath, err)
	}
	return nil
}

// Read decodes every row from src. Rows may have differing widths.
func (w *CSVWriter) Read(src io.Reader) ([][]string, error) {
	decoded := transform.NewReader(src, w.encoding.NewDecoder())
	if w.isUTF8() {
		decoded = transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv as %s: %w", w.encodingName, err)
	}
	return rows, nil
}

// ReadFile opens and decodes filePath.
func (w *CSVWriter) ReadFile(filePath string) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return w.Read(bufio.NewReader(f))
}
