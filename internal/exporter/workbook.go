package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"slotledger/pkg/contracts/domain"
)

// WorkbookOptions controls the layout of the aggregate workbook.
type WorkbookOptions struct {
	SheetName      string
	HeaderLabel    string
	Font           string
	RowHeight      float64
	MinColumnWidth float64
}

// DefaultWorkbookOptions returns the layout used by the original sheet.
func DefaultWorkbookOptions() WorkbookOptions {
	return WorkbookOptions{
		SheetName:      "合成確率",
		HeaderLabel:    domain.FieldMachineID,
		Font:           "メイリオ",
		RowHeight:      20,
		MinColumnWidth: 10,
	}
}

// columnPadding is added to the longest text in a column.
const columnPadding = 2

// WorkbookWriter renders an AggregateTable to an .xlsx file.
type WorkbookWriter struct {
	opts   WorkbookOptions
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer. A nil logger uses slog.Default.
func NewWorkbookWriter(opts WorkbookOptions, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderLabel == "" {
		opts.HeaderLabel = domain.FieldMachineID
	}
	return &WorkbookWriter{opts: opts, logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write replaces path with a single-sheet workbook holding the table.
//
// Row 1 is the machine id label followed by the date labels. Each later
// row is one machine with its value per date; absent values stay blank.
// Every column is sized to its longest text plus padding with a floor of
// MinColumnWidth, and every row gets RowHeight.
func (w *WorkbookWriter) Write(table *domain.AggregateTable, path string) error {
	f, err := w.Build(table)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := saveAtomic(f, path); err != nil {
		return err
	}

	w.logger.Info("workbook written",
		slog.String("path", path),
		slog.String("sheet", w.opts.SheetName),
		slog.Int("machines", len(table.Machines)),
		slog.Int("dates", len(table.Dates)))
	return nil
}

// Build renders the table into a new in-memory workbook.
func (w *WorkbookWriter) Build(table *domain.AggregateTable) (*excelize.File, error) {
	if table == nil {
		table = domain.NewAggregateTable()
	}

	f := excelize.NewFile()
	sheet := w.opts.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	widths := make([]int, len(table.Dates)+1)
	set := func(col, row int, value string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if n := utf8.RuneCountInString(value); n > widths[col-1] {
			widths[col-1] = n
		}
		return f.SetCellStr(sheet, cell, value)
	}

	if err := set(1, 1, w.opts.HeaderLabel); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, date := range table.Dates {
		if err := set(i+2, 1, date); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, machine := range table.Machines {
		row := r + 2
		if err := set(1, row, machine); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write machine %q: %w", machine, err)
		}
		for i, date := range table.Dates {
			value, ok := table.Value(machine, date)
			if !ok {
				continue
			}
			if err := set(i+2, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write machine %q: %w", machine, err)
			}
		}
	}

	if err := w.layout(f, widths, len(table.Machines)+1); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// layout applies column widths, row heights and the base font.
func (w *WorkbookWriter) layout(f *excelize.File, widths []int, rows int) error {
	sheet := w.opts.SheetName

	for i, n := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(n + columnPadding)
		if width < w.opts.MinColumnWidth {
			width = w.opts.MinColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if w.opts.RowHeight > 0 {
		for row := 1; row <= rows; row++ {
			if err := f.SetRowHeight(sheet, row, w.opts.RowHeight); err != nil {
				return fmt.Errorf("failed to set height of row %d: %w", row, err)
			}
		}
	}

	if w.opts.Font != "" {
		styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Family: w.opts.Font}})
		if err != nil {
			return fmt.Errorf("failed to create font style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(widths), rows)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
			return fmt.Errorf("failed to apply font: %w", err)
		}
	}
	return nil
}

// saveAtomic writes the workbook next to path and renames it into place.
func saveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
