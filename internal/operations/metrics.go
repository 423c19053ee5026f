package operations

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"slotledger/internal/exporter"
)

// Metrics holds the run and step collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	records       prometheus.Gauge
	machines      prometheus.Gauge
	dates         prometheus.Gauge
	cells         *prometheus.GaugeVec
	uploadResults *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotledger",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status and failed step.",
		}, []string{"status", "step"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotledger",
			Name:      "step_duration_seconds",
			Help:      "Duration of each pipeline step.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"step", "status"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotledger",
			Name:      "snapshot_records",
			Help:      "Records in the most recently extracted snapshot.",
		}),
		machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotledger",
			Name:      "aggregate_machines",
			Help:      "Machine rows in the most recent aggregate workbook.",
		}),
		dates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotledger",
			Name:      "aggregate_dates",
			Help:      "Date columns in the most recent aggregate workbook.",
		}),
		cells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "slotledger",
			Name:      "classified_cells",
			Help:      "Value cells per colour band in the most recent workbook.",
		}, []string{"band"}),
		uploadResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotledger",
			Name:      "uploads_total",
			Help:      "Artifact uploads by artifact kind and result.",
		}, []string{"artifact", "result"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.stepDuration, m.records, m.machines, m.dates, m.cells, m.uploadResults} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStep(step string, status StepStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step, string(status)).Observe(d.Seconds())
}

func (m *Metrics) observeRun(state *OperationState) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(state.GetStatus()), state.FailedStep).Inc()
	if state.GetStatus() != RunStatusDone {
		return
	}
	m.records.Set(float64(state.Snapshot.Len()))
	m.machines.Set(float64(state.AggregateStats.Machines))
	m.dates.Set(float64(state.AggregateStats.Dates))
	m.setBands(state.Bands)
}

func (m *Metrics) setBands(b exporter.ClassifyResult) {
	m.cells.WithLabelValues("low").Set(float64(b.Low))
	m.cells.WithLabelValues("mid").Set(float64(b.Mid))
	m.cells.WithLabelValues("no-fill").Set(float64(b.None))
}

func (m *Metrics) observeUpload(artifact string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploadResults.WithLabelValues(artifact, result).Inc()
}
