package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"

	apperrors "slotledger/internal/errors"
	"slotledger/pkg/contracts/domain"
)

// Thresholds splits composite probabilities into colour bands.
type Thresholds struct {
	Low float64 // values below Low are BandLow
	Mid float64 // values in [Low, Mid) are BandMid
}

// DefaultThresholds returns the 125 / 140 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 125, Mid: 140}
}

// Classify maps a cell's text to its colour band. Surrounding whitespace is
// ignored and full-width digits count as their ASCII forms. Anything that is
// not a decimal number, and NaN, is BandNone.
func (t Thresholds) Classify(text string) domain.ColorBand {
	v, ok := parseDecimal(text)
	if !ok || math.IsNaN(v) {
		return domain.BandNone
	}
	switch {
	case v < t.Low:
		return domain.BandLow
	case v < t.Mid:
		return domain.BandMid
	default:
		return domain.BandNone
	}
}

// parseDecimal reads text as a decimal float. Hex floats are rejected and
// an underscore is accepted only between two digits.
func parseDecimal(text string) (float64, bool) {
	s := strings.TrimSpace(width.Narrow.String(text))
	if s == "" || strings.ContainsAny(s, "xX") {
		return 0, false
	}
	if strings.Contains(s, "_") {
		var ok bool
		if s, ok = stripDigitSeparators(s); !ok {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stripDigitSeparators(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// FormatOptions configures the fills applied by a Formatter.
type FormatOptions struct {
	Thresholds Thresholds
	LowColor   string
	MidColor   string
	Font       string
	SheetName  string // empty selects the active sheet
}

// DefaultFormatOptions returns yellow / light blue fills in Meiryo.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		Thresholds: DefaultThresholds(),
		LowColor:   "FFFF00",
		MidColor:   "ADD8E6",
		Font:       "メイリオ",
	}
}

// ClassifyResult counts the cells visited by one pass.
type ClassifyResult struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	None int `json:"none"`
}

// Total returns the number of classified value cells.
func (r ClassifyResult) Total() int {
	return r.Low + r.Mid + r.None
}

// Formatter applies threshold fills to an aggregate workbook in place.
type Formatter struct {
	opts   FormatOptions
	logger *slog.Logger
}

// NewFormatter creates a formatter. A nil logger uses slog.Default.
func NewFormatter(opts FormatOptions, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{opts: opts, logger: logger.With(slog.String("component", "formatter"))}
}

// FormatFile opens the workbook at path, classifies it and saves it back.
// A workbook that cannot be opened as xlsx or styled fails with a
// classification error; a missing or unwritable file is a storage error.
func (fm *Formatter) FormatFile(path string) (ClassifyResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return ClassifyResult{}, apperrors.NewStorageError("failed to open workbook", err).
				WithContext("path", path)
		}
		return ClassifyResult{}, apperrors.NewClassificationError("failed to open workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	result, err := fm.Format(f)
	if err != nil {
		return result, apperrors.NewClassificationError("failed to classify workbook", err).
			WithContext("path", path)
	}
	if err := f.Save(); err != nil {
		return result, apperrors.NewStorageError("failed to save workbook", err).
			WithContext("path", path)
	}

	fm.logger.Info("workbook classified",
		slog.String("path", path),
		slog.Int("low", result.Low),
		slog.Int("mid", result.Mid),
		slog.Int("none", result.None))
	return result, nil
}

// Format classifies every cell from row 2 and column B onward. Row 1 and
// column A are never touched. Each visited cell is restyled so a cell that
// moved out of a band loses its old fill.
func (fm *Formatter) Format(f *excelize.File) (ClassifyResult, error) {
	var result ClassifyResult

	sheet := fm.opts.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	styles, err := fm.styles(f)
	if err != nil {
		return result, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return result, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	for r := 1; r < len(rows); r++ {
		for c := 1; c < len(rows[r]); c++ {
			if rows[r][c] == "" {
				continue
			}
			band := fm.opts.Thresholds.Classify(rows[r][c])
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return result, err
			}
			if err := f.SetCellStyle(sheet, cell, cell, styles[band]); err != nil {
				return result, fmt.Errorf("failed to style %s: %w", cell, err)
			}
			switch band {
			case domain.BandLow:
				result.Low++
			case domain.BandMid:
				result.Mid++
			default:
				result.None++
			}
		}
	}
	return result, nil
}

func (fm *Formatter) styles(f *excelize.File) (map[domain.ColorBand]int, error) {
	var font *excelize.Font
	if fm.opts.Font != "" {
		font = &excelize.Font{Family: fm.opts.Font}
	}

	defs := map[domain.ColorBand]*excelize.Style{
		domain.BandNone: {Font: font},
		domain.BandLow:  {Font: font, Fill: solidFill(fm.opts.LowColor)},
		domain.BandMid:  {Font: font, Fill: solidFill(fm.opts.MidColor)},
	}

	ids := make(map[domain.ColorBand]int, len(defs))
	for band, style := range defs {
		id, err := f.NewStyle(style)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s style: %w", band, err)
		}
		ids[band] = id
	}
	return ids, nil
}

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}
