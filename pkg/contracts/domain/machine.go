package domain

import (
	"time"
)

// Field names of a machine record, in the fixed column order used by the
// snapshot CSV header and the HTML table cells 1 through 10.
const (
	FieldMachineID            = "台番号"
	FieldCumulativeStarts     = "累計スタート"
	FieldBBCount              = "BB回数"
	FieldRBCount              = "RB回数"
	FieldARTCount             = "ART回数"
	FieldMaxPayout            = "最大持玉"
	FieldBBProbability        = "BB確率"
	FieldRBProbability        = "RB確率"
	FieldARTProbability       = "ART確率"
	FieldCompositeProbability = "合成確率"
)

// RecordFields lists the ten record columns in order.
var RecordFields = []string{
	FieldMachineID,
	FieldCumulativeStarts,
	FieldBBCount,
	FieldRBCount,
	FieldARTCount,
	FieldMaxPayout,
	FieldBBProbability,
	FieldRBProbability,
	FieldARTProbability,
	FieldCompositeProbability,
}

// FieldCount is the width of a snapshot row.
const FieldCount = 10

// MachineRecord holds one machine's statistics for one day.
// Every value is kept as the text found in the source table; numeric
// parsing only happens when a value is classified.
type MachineRecord struct {
	MachineID            string `json:"machine_id" validate:"required"`
	CumulativeStarts     string `json:"cumulative_starts"`
	BBCount              string `json:"bb_count"`
	RBCount              string `json:"rb_count"`
	ARTCount             string `json:"art_count"`
	MaxPayout            string `json:"max_payout"`
	BBProbability        string `json:"bb_probability"`
	RBProbability        string `json:"rb_probability"`
	ARTProbability       string `json:"art_probability"`
	CompositeProbability string `json:"composite_probability"`
}

// Values returns the record as a row in RecordFields order.
func (r MachineRecord) Values() []string {
	return []string{
		r.MachineID,
		r.CumulativeStarts,
		r.BBCount,
		r.RBCount,
		r.ARTCount,
		r.MaxPayout,
		r.BBProbability,
		r.RBProbability,
		r.ARTProbability,
		r.CompositeProbability,
	}
}

// RecordFromValues builds a record from a row in RecordFields order.
// Missing trailing values become empty strings, extra values are ignored.
func RecordFromValues(values []string) MachineRecord {
	v := make([]string, FieldCount)
	copy(v, values)
	return MachineRecord{
		MachineID:            v[0],
		CumulativeStarts:     v[1],
		BBCount:              v[2],
		RBCount:              v[3],
		ARTCount:             v[4],
		MaxPayout:            v[5],
		BBProbability:        v[6],
		RBProbability:        v[7],
		ARTProbability:       v[8],
		CompositeProbability: v[9],
	}
}

// Snapshot is the set of machine records extracted from one day's table.
// Date carries no time component.
type Snapshot struct {
	Date    time.Time       `json:"date" validate:"required"`
	Records []MachineRecord `json:"records" validate:"dive"`
}

// NewSnapshot creates an empty snapshot for the given calendar day.
func NewSnapshot(date time.Time) *Snapshot {
	return &Snapshot{Date: TruncateDay(date)}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Put adds a record, replacing any record already held for the same
// machine id. The replaced record keeps its position. It reports whether
// a replacement happened.
func (s *Snapshot) Put(rec MachineRecord) bool {
	for i := range s.Records {
		if s.Records[i].MachineID == rec.MachineID {
			s.Records[i] = rec
			return true
		}
	}
	s.Records = append(s.Records, rec)
	return false
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date layouts used across the pipeline.
const (
	// FileDateLayout is the date format embedded in snapshot file names.
	FileDateLayout = "2006-01-02"
	// ColumnDateLayout is the date format of aggregate workbook headers.
	ColumnDateLayout = "2006/01/02"
)
