package domain

import (
	"sort"
)

// AggregateTable is the machine × date pivot of composite probabilities.
//
// Machines keeps first-encounter order. Dates is sorted ascending and
// holds ColumnDateLayout labels. A machine missing on a date has no entry
// in Cells, which is distinct from an entry holding the empty string.
type AggregateTable struct {
	Dates    []string                     `json:"dates"`
	Machines []string                     `json:"machines"`
	Cells    map[string]map[string]string `json:"cells"`

	dateSet map[string]struct{}
}

// NewAggregateTable returns an empty table.
func NewAggregateTable() *AggregateTable {
	return &AggregateTable{
		Cells:   make(map[string]map[string]string),
		dateSet: make(map[string]struct{}),
	}
}

// AddDate registers a date column even when no record carries it.
func (t *AggregateTable) AddDate(label string) {
	if t.dateSet == nil {
		t.dateSet = make(map[string]struct{})
	}
	if _, ok := t.dateSet[label]; ok {
		return
	}
	t.dateSet[label] = struct{}{}
	t.Dates = append(t.Dates, label)
	sort.Strings(t.Dates)
}

// Set stores the value for a machine on a date, overwriting any earlier value.
func (t *AggregateTable) Set(machine, label, value string) {
	t.AddDate(label)
	row, ok := t.Cells[machine]
	if !ok {
		row = make(map[string]string)
		t.Cells[machine] = row
		t.Machines = append(t.Machines, machine)
	}
	row[label] = value
}

// Value returns the cell for a machine on a date and whether it exists.
func (t *AggregateTable) Value(machine, label string) (string, bool) {
	row, ok := t.Cells[machine]
	if !ok {
		return "", false
	}
	v, ok := row[label]
	return v, ok
}

// IsEmpty reports whether the table has no date columns.
func (t *AggregateTable) IsEmpty() bool {
	return len(t.Dates) == 0
}

// ColorBand is the visual classification of a value cell.
type ColorBand int

const (
	// BandNone leaves the cell unfilled: not numeric, or at least 140.
	BandNone ColorBand = iota
	// BandLow marks values below 125.
	BandLow
	// BandMid marks values from 125 up to but excluding 140.
	BandMid
)

// String returns the band name.
func (b ColorBand) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMid:
		return "mid"
	default:
		return "no-fill"
	}
}
