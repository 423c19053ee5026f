package operations

import (
	"sync"
	"time"

	"slotledger/internal/dataprocessing"
	"slotledger/internal/exporter"
	"slotledger/internal/files"
	"slotledger/pkg/contracts/domain"
)

// RunStatus is the lifecycle state of a run. A run moves forward through
// the step statuses in order and ends in RunStatusDone or RunStatusFailed.
type RunStatus string

const (
	RunStatusStart      RunStatus = "start"
	RunStatusExtracted  RunStatus = "extracted"
	RunStatusStored     RunStatus = "stored"
	RunStatusAggregated RunStatus = "aggregated"
	RunStatusClassified RunStatus = "classified"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// reachedStatus is the run status after each step succeeds.
var reachedStatus = map[string]RunStatus{
	StepIDExtract:   RunStatusExtracted,
	StepIDStore:     RunStatusStored,
	StepIDAggregate: RunStatusAggregated,
	StepIDClassify:  RunStatusClassified,
}

// IsTerminal reports whether no further transition can happen.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// OperationState is the state of one run. Steps read their inputs from it
// and leave their outputs on it for the next step.
type OperationState struct {
	mu sync.RWMutex

	ID         string
	Status     RunStatus
	FailedStep string
	StartTime  time.Time
	EndTime    *time.Time
	Error      error

	steps map[string]*StepState
	order []string

	// Inputs
	Request Request
	Store   *files.Store

	// Step outputs
	Snapshot       *domain.Snapshot
	ExtractStats   dataprocessing.ExtractStats
	SnapshotPath   string
	Table          *domain.AggregateTable
	AggregateStats dataprocessing.AggregateStats
	Bands          exporter.ClassifyResult
}

// NewOperationState creates the state for a run about to start.
func NewOperationState(id string, req Request) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    RunStatusStart,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState),
		Request:   req,
	}
}

// AddStep registers a pending step.
func (s *OperationState) AddStep(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.steps[id]; ok {
		return
	}
	s.steps[id] = NewStepState(id, name)
	s.order = append(s.order, id)
}

// GetStep returns the state of a specific step
func (s *OperationState) GetStep(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[id]
}

// Steps returns step states in execution order
func (s *OperationState) Steps() []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.steps[id])
	}
	return out
}

// Advance records that step finished successfully.
func (s *OperationState) Advance(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next, ok := reachedStatus[step]; ok && !s.Status.IsTerminal() {
		s.Status = next
	}
}

// Complete marks the run as done
func (s *OperationState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusDone
}

// Fail marks the run as failed at step. Steps that never started are
// marked skipped.
func (s *OperationState) Fail(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusFailed
	s.FailedStep = step
	s.Error = err
	for _, st := range s.steps {
		if st.GetStatus() == StepStatusPending {
			st.Skip()
		}
	}
}

// GetStatus returns the current run status
func (s *OperationState) GetStatus() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration returns the wall time of the run so far
func (s *OperationState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime == nil {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
