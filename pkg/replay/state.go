package replay

import (
	"sync"
	"time"
)

// RunStatus is the runner's state machine position. Exactly one value holds
// at a time.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusLoading   RunStatus = "loading"
	StatusExecuting RunStatus = "executing"
	StatusPaused    RunStatus = "paused"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
)

// LogLevel classifies a log entry.
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
	LevelSuccess LogLevel = "success"
)

// maxLogEntries bounds the log ring; appends beyond it evict the oldest.
const maxLogEntries = 100

// ActionOutcome records the result of one attempted action. Outcomes are
// append-only and never produced for actions the run stopped before reaching.
type ActionOutcome struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunSummary aggregates one run attempt. EndedAt is set exactly once, when
// the run is finalized by completion, stop or error halt.
type RunSummary struct {
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	DurationMs int64      `json:"duration_ms"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// LogEntry is one line of the bounded execution log.
type LogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Level       LogLevel  `json:"level"`
	Message     string    `json:"message"`
	ActionIndex *int      `json:"action_index,omitempty"`
}

// StateSnapshot is a point-in-time copy of the observable run state, safe to
// serialize and hand to external readers.
type StateSnapshot struct {
	Status        RunStatus       `json:"status"`
	ConfigName    string          `json:"config_name,omitempty"`
	Cursor        int             `json:"cursor"`
	Outcomes      []ActionOutcome `json:"outcomes"`
	Logs          []LogEntry      `json:"logs"`
	Summary       *RunSummary     `json:"summary,omitempty"`
	LiveExecution bool            `json:"live_execution"`
}

// State is the observable state surface the runner mutates. External readers
// only ever see copies; the container itself is never handed out.
type State struct {
	mu         sync.RWMutex
	status     RunStatus
	configName string
	cursor     int
	outcomes   []ActionOutcome
	logs       []LogEntry
	summary    *RunSummary
	live       bool
}

// NewState returns a state container in the idle position with no cursor.
func NewState() *State {
	return &State{
		status: StatusIdle,
		cursor: -1,
	}
}

// Status returns the current run status.
func (s *State) Status() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Cursor returns the current action index, or -1 when no action is current.
func (s *State) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Outcomes returns a copy of the outcomes recorded since the last start.
func (s *State) Outcomes() []ActionOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActionOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Logs returns a copy of the retained log entries, oldest first.
func (s *State) Logs() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// Summary returns a copy of the current run summary, or nil before the first
// start.
func (s *State) Summary() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return nil
	}
	cp := *s.summary
	return &cp
}

// Snapshot returns a copy of the full observable state.
func (s *State) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcomes := make([]ActionOutcome, len(s.outcomes))
	copy(outcomes, s.outcomes)
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)

	snap := StateSnapshot{
		Status:        s.status,
		ConfigName:    s.configName,
		Cursor:        s.cursor,
		Outcomes:      outcomes,
		Logs:          logs,
		LiveExecution: s.live,
	}
	if s.summary != nil {
		cp := *s.summary
		snap.Summary = &cp
	}
	return snap
}

func (s *State) setStatus(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// statusIs reports whether the current status equals any of the given values.
func (s *State) statusIs(statuses ...RunStatus) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range statuses {
		if s.status == st {
			return true
		}
	}
	return false
}

// transition moves to the target status only if the current status is one of
// the allowed origins, reporting whether the move happened.
func (s *State) transition(to RunStatus, from ...RunStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.status == f {
			s.status = to
			return true
		}
	}
	return false
}

func (s *State) setConfigName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configName = name
}

func (s *State) setCursor(cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}

func (s *State) setLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

func (s *State) appendLog(level LogLevel, message string, actionIndex *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		ActionIndex: actionIndex,
	})
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
}

// beginRun installs a fresh summary and clears outcomes for a new attempt.
func (s *State) beginRun(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = nil
	s.summary = &RunSummary{
		Total:     total,
		StartedAt: time.Now(),
	}
}

// recordOutcome appends the outcome and folds it into the summary counters.
func (s *State) recordOutcome(o ActionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	if s.summary == nil {
		return
	}
	if o.Success {
		s.summary.Completed++
	} else {
		s.summary.Failed++
	}
	s.summary.DurationMs = time.Since(s.summary.StartedAt).Milliseconds()
}

// finalizeSummary stamps the end time once and accounts unattempted actions
// as skipped. Safe to call more than once; only the first call has effect.
func (s *State) finalizeSummary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil || s.summary.EndedAt != nil {
		return
	}
	now := time.Now()
	s.summary.EndedAt = &now
	s.summary.DurationMs = now.Sub(s.summary.StartedAt).Milliseconds()
	if skipped := s.summary.Total - s.summary.Completed - s.summary.Failed; skipped > 0 {
		s.summary.Skipped = skipped
	}
}

// clearRun drops outcomes, summary and cursor, returning the state to its
// pre-run shape. Status is handled separately by the runner.
func (s *State) clearRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = -1
	s.outcomes = nil
	s.summary = nil
}
