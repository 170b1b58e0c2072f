package replay

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Surface is the injected capability that can run a script against a live
// page. Absence or unavailability means the whole run falls back to
// simulation; the decision is made once per start, not per action.
type Surface interface {
	ExecuteScript(ctx context.Context, script string) (any, error)
	IsAvailable() bool
}

const assertFailedText = "Assertion failed: element not found"

// Settle delays applied after dispatching to a live page. These model
// network and render latency, so they are not scaled by the speed
// multiplier.
const (
	settleNavigate = 1000 * time.Millisecond
	settleClick    = 300 * time.Millisecond
	settleInput    = 200 * time.Millisecond
	settleScroll   = 200 * time.Millisecond
	settleUnknown  = 500 * time.Millisecond
)

// LiveExecutor dispatches actions to an interactive surface using scripts
// built by the script compiler. Dispatch errors are converted into failed
// results, never propagated.
type LiveExecutor struct {
	surface Surface
}

// NewLiveExecutor returns an executor bound to the given surface.
func NewLiveExecutor(surface Surface) *LiveExecutor {
	return &LiveExecutor{surface: surface}
}

// Execute builds the script for the action, dispatches it, and waits the
// per-type settle delay.
func (e *LiveExecutor) Execute(ctx context.Context, action Action) Result {
	switch action.Type {
	case ActionNavigate:
		return e.dispatch(ctx, NavigateScript(action.Value), settleNavigate)

	case ActionClick:
		return e.dispatch(ctx, ClickScript(action.Locator), settleClick)

	case ActionInput:
		return e.dispatch(ctx, InputScript(action.Locator, action.Value), settleInput)

	case ActionSelect:
		return e.dispatch(ctx, SelectScript(action.Locator, action.Value), settleInput)

	case ActionWait:
		ms := parseWaitMs(action.Value, 1000)
		sleepFor(ctx, time.Duration(ms)*time.Millisecond)
		return Result{Success: true}

	case ActionScroll:
		x, y := parseScrollXY(action.Value)
		return e.dispatch(ctx, ScrollScript(x, y), settleScroll)

	case ActionAssert:
		value, err := e.surface.ExecuteScript(ctx, ExistsScript(action.Locator))
		if err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		if !truthy(value) {
			return Result{Success: false, Error: assertFailedText}
		}
		return Result{Success: true}

	default:
		// Unrecognized types are a timed no-op on a live surface.
		sleepFor(ctx, settleUnknown)
		return Result{Success: true}
	}
}

func (e *LiveExecutor) dispatch(ctx context.Context, script string, settle time.Duration) Result {
	if _, err := e.surface.ExecuteScript(ctx, script); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	sleepFor(ctx, settle)
	return Result{Success: true}
}

// parseScrollXY parses an "x,y" payload; missing or unparseable components
// default to 0.
func parseScrollXY(value string) (int, int) {
	parts := strings.SplitN(value, ",", 2)
	var x, y int
	if len(parts) > 0 {
		x, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) > 1 {
		y, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return x, y
}

// truthy applies JS-like truthiness to a script result.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0
	case int:
		return value != 0
	default:
		return true
	}
}
