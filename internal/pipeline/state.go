package pipeline

import (
	"context"
	"sync"
	"time"
)

// RunState is the single piece of process-wide mutable state: the busy gate
// plus live counters for the active run. Acquisition is non-blocking and
// release is wired into every exit path of the coordinator.
type RunState struct {
	mu              sync.Mutex
	running         bool
	runID           string
	startTime       time.Time
	pageCursor      int
	detailProcessed int64
	detailFailed    int64
	lastCheckpoint  time.Time
	stopRequested   bool
	cancel          context.CancelFunc
}

// RunSnapshot is a point-in-time copy of the run state.
type RunSnapshot struct {
	Running         bool      `json:"running"`
	RunID           string    `json:"run_id,omitempty"`
	StartTime       time.Time `json:"start_time,omitzero"`
	PageCursor      int       `json:"page_cursor"`
	DetailProcessed int64     `json:"detail_processed"`
	DetailFailed    int64     `json:"detail_failed"`
	LastCheckpoint  time.Time `json:"last_checkpoint,omitzero"`
}

// NewRunState creates an idle run state.
func NewRunState() *RunState {
	return &RunState{}
}

// TryAcquire claims the gate for runID. Returns false immediately when a
// run is already active; it never waits.
func (s *RunState) TryAcquire(runID string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	s.running = true
	s.runID = runID
	s.startTime = time.Now()
	s.pageCursor = 0
	s.detailProcessed = 0
	s.detailFailed = 0
	s.lastCheckpoint = time.Time{}
	s.stopRequested = false
	s.cancel = cancel

	return true
}

// Release resets the gate to idle. Safe to call on an idle state.
func (s *RunState) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.runID = ""
}

// Stop requests a cooperative stop of the active run. It only raises a
// flag: the run observes it between pages, so in-flight detail fetches
// drain on their own timeouts and the current page still loads and
// checkpoints.
func (s *RunState) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.stopRequested = true
	}
}

// StopRequested reports whether a cooperative stop has been requested.
func (s *RunState) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

// IsRunning reports whether a run is active.
func (s *RunState) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetCursor records the last fully loaded page.
func (s *RunState) SetCursor(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCursor = page
}

// AddDetail accumulates detail-fetch counters.
func (s *RunState) AddDetail(processed, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailProcessed += int64(processed)
	s.detailFailed += int64(failed)
}

// MarkCheckpoint records the time of the latest persisted checkpoint.
func (s *RunState) MarkCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheckpoint = time.Now()
}

// Snapshot returns a copy of the current state.
func (s *RunState) Snapshot() RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return RunSnapshot{
		Running:         s.running,
		RunID:           s.runID,
		StartTime:       s.startTime,
		PageCursor:      s.pageCursor,
		DetailProcessed: s.detailProcessed,
		DetailFailed:    s.detailFailed,
		LastCheckpoint:  s.lastCheckpoint,
	}
}
