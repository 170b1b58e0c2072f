package replay

import (
	"context"
	"math/rand"
	"strconv"
	"time"
)

// Result is the outcome of dispatching one action. Failures are data, not
// Go errors: nothing an executor does propagates as an error to the runner.
type Result struct {
	Success bool
	Error   string
}

// Executor dispatches a single action and reports how it went.
type Executor interface {
	Execute(ctx context.Context, action Action) Result
}

// RandomSource supplies the timing and outcome draws for simulation. Tests
// inject a scripted source to force deterministic sequences.
type RandomSource interface {
	// Chance reports true with probability p.
	Chance(p float64) bool
	// IntBetween returns a uniform draw from [min, max].
	IntBetween(min, max int) int
}

type mathRandSource struct {
	r *rand.Rand
}

// NewRandomSource returns a RandomSource backed by math/rand with the given
// seed.
func NewRandomSource(seed int64) RandomSource {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))}
}

func (s *mathRandSource) Chance(p float64) bool {
	return s.r.Float64() < p
}

func (s *mathRandSource) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.r.Intn(max-min+1)
}

// sleepFor waits for d or until the context is cancelled, reporting whether
// the full duration elapsed.
func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// parseWaitMs parses an action payload as a millisecond count, defaulting
// when absent or unparseable.
func parseWaitMs(value string, def int) int {
	if value == "" {
		return def
	}
	ms, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return ms
}

const (
	simulatedFailureRate = 0.05
	simulatedErrorText   = "Simulated error: Element not found or action failed."
)

// SimulatedExecutor produces synthetic outcomes without any interactive
// surface, drawing per-type durations and a fixed failure probability from
// its random source.
type SimulatedExecutor struct {
	rand  RandomSource
	speed float64
}

// NewSimulatedExecutor returns a simulated executor. The speed multiplier
// divides every drawn duration and must be positive.
func NewSimulatedExecutor(rand RandomSource, speed float64) *SimulatedExecutor {
	return &SimulatedExecutor{rand: rand, speed: speed}
}

// Execute draws a duration for the action, waits it out scaled by the speed
// multiplier, and draws the success outcome.
func (e *SimulatedExecutor) Execute(ctx context.Context, action Action) Result {
	ms := e.durationMs(action)
	sleepFor(ctx, time.Duration(float64(ms)/e.speed*float64(time.Millisecond)))

	if e.rand.Chance(simulatedFailureRate) {
		return Result{Success: false, Error: simulatedErrorText}
	}
	return Result{Success: true}
}

func (e *SimulatedExecutor) durationMs(action Action) int {
	switch action.Type {
	case ActionClick:
		return e.rand.IntBetween(200, 500)
	case ActionInput:
		return 200 + 50*len(action.Value)
	case ActionSelect:
		return e.rand.IntBetween(300, 600)
	case ActionNavigate:
		return e.rand.IntBetween(1000, 3000)
	case ActionWait:
		return parseWaitMs(action.Value, 1000)
	case ActionScroll:
		return e.rand.IntBetween(200, 400)
	case ActionScreenshot:
		return e.rand.IntBetween(500, 1000)
	case ActionAssert:
		return e.rand.IntBetween(100, 300)
	default:
		return e.rand.IntBetween(200, 500)
	}
}
