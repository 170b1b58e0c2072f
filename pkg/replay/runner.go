package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default inter-action pacing. Human-like mode replaces the fixed delay with
// a uniform draw; both are divided by the speed multiplier.
const (
	fixedDelayMs    = 300
	humanDelayMinMs = 500
	humanDelayMaxMs = 1500
)

// RunRecord captures one finalized run attempt for external persistence.
type RunRecord struct {
	ConfigName string
	Status     RunStatus
	Live       bool
	Summary    RunSummary
	Outcomes   []ActionOutcome
}

// runParams are the policies frozen into a run at start time. Setter calls
// during a run only affect the next one.
type runParams struct {
	speed       float64
	humanDelay  bool
	stopOnError bool
}

func (p runParams) interActionDelay(rand RandomSource) time.Duration {
	ms := fixedDelayMs
	if p.humanDelay {
		ms = rand.IntBetween(humanDelayMinMs, humanDelayMaxMs)
	}
	return time.Duration(float64(ms) / p.speed * float64(time.Millisecond))
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithSurface injects the interactive surface. When absent or unavailable at
// start, runs execute in simulation.
func WithSurface(surface Surface) Option {
	return func(r *Runner) { r.surface = surface }
}

// WithRandomSource replaces the timing/outcome randomness, letting tests
// force deterministic sequences.
func WithRandomSource(rand RandomSource) Option {
	return func(r *Runner) { r.rand = rand }
}

// WithRunEndHook registers a callback fired once per finalized run attempt
// (natural completion, error halt, or stop). The callback runs outside the
// runner's locks and must not be assumed to run on any particular goroutine.
func WithRunEndHook(hook func(RunRecord)) Option {
	return func(r *Runner) { r.onRunEnd = hook }
}

// Runner owns the run state machine. It iterates the loaded configuration's
// actions from a resumable position, selects the live or simulated executor
// once per start, applies the pacing policy, and aggregates outcomes into
// the observable state. At most one execution loop is active at a time.
type Runner struct {
	mu       sync.Mutex
	state    *State
	config   *Configuration
	log      *zap.Logger
	surface  Surface
	rand     RandomSource
	onRunEnd func(RunRecord)

	speed       float64
	humanDelay  bool
	stopOnError bool

	resumeIndex int
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewRunner returns an idle runner with default policies: speed 1.0,
// human-like delays off, stop-on-error on.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		state:       NewState(),
		log:         zap.NewNop(),
		rand:        NewRandomSource(time.Now().UnixNano()),
		speed:       1.0,
		stopOnError: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns a copy of the full observable state.
func (r *Runner) Snapshot() StateSnapshot { return r.state.Snapshot() }

// Status returns the current run status.
func (r *Runner) Status() RunStatus { return r.state.Status() }

// Cursor returns the current action index, or -1 when no action is current.
func (r *Runner) Cursor() int { return r.state.Cursor() }

// Outcomes returns the outcomes recorded since the last start.
func (r *Runner) Outcomes() []ActionOutcome { return r.state.Outcomes() }

// Logs returns the retained execution log entries.
func (r *Runner) Logs() []LogEntry { return r.state.Logs() }

// Summary returns the current run summary, or nil before the first start.
func (r *Runner) Summary() *RunSummary { return r.state.Summary() }

// SetSpeed sets the speed multiplier for subsequent runs. Non-positive
// values are rejected; validation of the recommended range belongs to the
// settings boundary.
func (r *Runner) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", speed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = speed
	return nil
}

// SetHumanDelay toggles randomized inter-action pacing for subsequent runs.
func (r *Runner) SetHumanDelay(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.humanDelay = enabled
}

// SetStopOnError toggles the halt-on-failure policy for subsequent runs.
func (r *Runner) SetStopOnError(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopOnError = enabled
}

// Load installs a configuration, replacing any prior one and resetting all
// run state. Allowed from idle or error. A nil or structurally invalid
// configuration moves the runner to error and leaves the prior selection
// untouched.
func (r *Runner) Load(cfg *Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.statusIs(StatusIdle, StatusError) {
		return fmt.Errorf("%w: cannot load while %s", ErrInvalidState, r.state.Status())
	}

	r.state.setStatus(StatusLoading)
	if err := cfg.Validate(); err != nil {
		r.state.setStatus(StatusError)
		r.state.appendLog(LevelError, fmt.Sprintf("failed to load configuration: %v", err), nil)
		r.log.Error("failed to load configuration", zap.Error(err))
		return err
	}

	r.config = cfg.Clone()
	r.resumeIndex = 0
	r.state.clearRun()
	r.state.setConfigName(cfg.Name)
	r.state.setStatus(StatusIdle)
	r.state.appendLog(LevelInfo, fmt.Sprintf("loaded configuration %q (%d actions)", cfg.Name, len(cfg.Actions)), nil)
	r.log.Info("configuration loaded",
		zap.String("config", cfg.Name),
		zap.Int("actions", len(cfg.Actions)))
	return nil
}

// Start begins a fresh run, or resumes from the current position when
// paused. A fresh start requires a loaded configuration, clears prior
// outcomes, creates a new summary, and picks the live or simulated executor
// for the whole run based on surface availability. Start blocks until any
// previous execution loop has fully exited, so at most one loop is ever
// active and a resume can never race a draining predecessor.
func (r *Runner) Start() error {
	for {
		r.mu.Lock()
		if err := r.checkStartable(); err != nil {
			r.mu.Unlock()
			return err
		}
		done := r.done
		if done == nil {
			break
		}
		select {
		case <-done:
		default:
			// A prior loop is still finishing its in-flight action. Wait
			// for it outside the lock, then re-validate the state.
			r.mu.Unlock()
			<-done
			continue
		}
		break
	}
	defer r.mu.Unlock()

	if r.state.statusIs(StatusPaused) {
		r.state.setStatus(StatusExecuting)
		r.state.appendLog(LevelInfo, "run resumed", nil)
		r.log.Info("run resumed", zap.Int("next_index", r.resumeIndex))
		r.launch(r.resumeIndex)
		return nil
	}

	actions := r.config.Actions
	r.resumeIndex = 0
	r.state.beginRun(len(actions))
	if len(actions) > 0 {
		r.state.setCursor(0)
	}

	live := r.surface != nil && r.surface.IsAvailable()
	r.state.setLive(live)

	r.state.setStatus(StatusExecuting)
	mode := "simulated"
	if live {
		mode = "live"
	}
	r.state.appendLog(LevelInfo, fmt.Sprintf("run started (%s, %d actions)", mode, len(actions)), nil)
	r.log.Info("run started",
		zap.String("config", r.config.Name),
		zap.Int("actions", len(actions)),
		zap.Bool("live", live),
		zap.Float64("speed", r.speed))
	r.launch(0)
	return nil
}

// checkStartable reports whether a start or resume is allowed from the
// current status. Caller holds r.mu.
func (r *Runner) checkStartable() error {
	switch {
	case r.state.statusIs(StatusExecuting, StatusLoading):
		return ErrAlreadyRunning
	case r.state.statusIs(StatusPaused):
		return nil
	case !r.state.statusIs(StatusIdle):
		return fmt.Errorf("%w: cannot start while %s (reset first)", ErrInvalidState, r.state.Status())
	case r.config == nil:
		return ErrNoConfiguration
	}
	return nil
}

// launch freezes the run parameters, picks the executor, and starts the loop
// goroutine. Caller holds r.mu.
func (r *Runner) launch(startIndex int) {
	params := runParams{
		speed:       r.speed,
		humanDelay:  r.humanDelay,
		stopOnError: r.stopOnError,
	}

	var exec Executor
	if r.state.Snapshot().LiveExecution {
		exec = NewLiveExecutor(r.surface)
	} else {
		exec = NewSimulatedExecutor(r.rand, params.speed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done

	actions := r.config.Actions
	go func() {
		defer close(done)
		r.runLoop(ctx, exec, actions, startIndex, params)
	}()
}

// Pause requests a cooperative pause. The in-flight action, if any, finishes
// and its outcome is recorded; the loop stops before the next action.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.transition(StatusPaused, StatusExecuting) {
		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidState, r.state.Status())
	}
	r.state.appendLog(LevelInfo, "run paused", nil)
	r.log.Info("run paused", zap.Int("cursor", r.state.Cursor()))
	return nil
}

// Stop cancels the run loop, returns the runner to idle, clears the cursor
// and stamps the summary end time. Allowed from executing or paused.
func (r *Runner) Stop() error {
	r.mu.Lock()

	if !r.state.statusIs(StatusExecuting, StatusPaused) {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot stop while %s", ErrInvalidState, r.state.Status())
	}

	if r.cancel != nil {
		r.cancel()
	}
	r.state.setStatus(StatusIdle)
	r.state.setCursor(-1)
	r.state.finalizeSummary()
	r.state.appendLog(LevelInfo, "run stopped", nil)
	r.log.Info("run stopped")

	record := r.buildRecord()
	hook := r.onRunEnd
	r.mu.Unlock()

	if hook != nil {
		hook(record)
	}
	return nil
}

// Reset cancels any in-flight loop and returns the runner to idle with no
// cursor, outcomes or summary. Defensively allowed from any state; a reset
// of an already clean runner is a no-op.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.state.Snapshot()
	clean := snap.Status == StatusIdle && snap.Cursor == -1 &&
		len(snap.Outcomes) == 0 && snap.Summary == nil
	if clean {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}
	r.resumeIndex = 0
	r.state.setStatus(StatusIdle)
	r.state.clearRun()
	r.state.appendLog(LevelInfo, "runner reset", nil)
	r.log.Info("runner reset")
	return nil
}

// Wait blocks until the active execution loop exits. It returns immediately
// when no loop has been started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *Runner) setResumeIndex(i int) {
	r.mu.Lock()
	r.resumeIndex = i
	r.mu.Unlock()
}

// buildRecord snapshots the finalized run. Caller holds r.mu or runs on the
// loop goroutine after finalization.
func (r *Runner) buildRecord() RunRecord {
	snap := r.state.Snapshot()
	record := RunRecord{
		ConfigName: snap.ConfigName,
		Status:     snap.Status,
		Live:       snap.LiveExecution,
		Outcomes:   snap.Outcomes,
	}
	if snap.Summary != nil {
		record.Summary = *snap.Summary
	}
	return record
}

func (r *Runner) fireRunEnd() {
	r.mu.Lock()
	hook := r.onRunEnd
	r.mu.Unlock()
	if hook != nil {
		hook(r.buildRecord())
	}
}

// runLoop executes actions from startIndex until exhaustion, pause, stop or
// an error halt. It is the only writer of outcomes while running; commands
// flip the status from the outside and the loop observes it at its
// per-iteration check and after every suspension.
func (r *Runner) runLoop(ctx context.Context, exec Executor, actions []Action, startIndex int, params runParams) {
	for i := startIndex; i < len(actions); i++ {
		if !r.state.statusIs(StatusExecuting) {
			return
		}

		action := actions[i]
		index := i
		r.state.setCursor(i)
		r.state.appendLog(LevelInfo, fmt.Sprintf("executing action %d: %s", i+1, action.Name), &index)
		r.log.Debug("executing action",
			zap.Int("index", i),
			zap.String("name", action.Name),
			zap.String("type", string(action.Type)))

		started := time.Now()
		result := exec.Execute(ctx, action)
		elapsed := time.Since(started)

		// A stop or reset that arrived mid-dispatch has already finalized
		// the run; the late outcome is discarded.
		if !r.state.statusIs(StatusExecuting, StatusPaused) {
			return
		}

		r.state.recordOutcome(ActionOutcome{
			Index:      i,
			Name:       action.Name,
			Success:    result.Success,
			Error:      result.Error,
			DurationMs: elapsed.Milliseconds(),
			Timestamp:  time.Now(),
		})
		r.setResumeIndex(i + 1)

		if result.Success {
			r.state.appendLog(LevelSuccess, fmt.Sprintf("action %d completed in %dms", i+1, elapsed.Milliseconds()), &index)
		} else {
			r.state.appendLog(LevelError, fmt.Sprintf("action %d failed: %s", i+1, result.Error), &index)
			r.log.Warn("action failed",
				zap.Int("index", i),
				zap.String("name", action.Name),
				zap.String("error", result.Error))
		}

		if !result.Success && params.stopOnError {
			if r.state.transition(StatusError, StatusExecuting, StatusPaused) {
				r.state.finalizeSummary()
				r.state.appendLog(LevelError, "execution stopped due to error", &index)
				r.log.Error("execution stopped due to error", zap.Int("index", i))
				r.fireRunEnd()
			}
			return
		}

		if i < len(actions)-1 {
			// A pause that arrived during the action should not cost the
			// full inter-action delay; it would also stall a prompt resume,
			// which waits for this loop to exit.
			if !r.state.statusIs(StatusExecuting) {
				return
			}
			if !sleepFor(ctx, params.interActionDelay(r.rand)) {
				return
			}
		}
	}

	if r.state.transition(StatusCompleted, StatusExecuting) {
		r.state.finalizeSummary()
		r.state.appendLog(LevelSuccess, "execution completed", nil)
		r.log.Info("execution completed")
		r.fireRunEnd()
	}
}
