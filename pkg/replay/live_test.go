package replay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface records every dispatched script and replies from a queue of
// canned results.
type fakeSurface struct {
	mu        sync.Mutex
	scripts   []string
	results   []any
	err       error
	available bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{available: true}
}

func (f *fakeSurface) ExecuteScript(ctx context.Context, script string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return true, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

func (f *fakeSurface) IsAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeSurface) dispatched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.scripts))
	copy(out, f.scripts)
	return out
}

func TestLiveExecutorDispatchesCompiledScripts(t *testing.T) {
	// The surface error short-circuits the settle delay, so the dispatched
	// script can be inspected without waiting.
	surface := newFakeSurface()
	surface.err = errors.New("page crashed")
	exec := NewLiveExecutor(surface)

	tests := []struct {
		name     string
		action   Action
		expected string
	}{
		{
			name:     "Navigate compiles a location script",
			action:   Action{Type: ActionNavigate, Value: "https://example.com"},
			expected: NavigateScript("https://example.com"),
		},
		{
			name:     "Click compiles a click script",
			action:   Action{Type: ActionClick, Locator: Locator{Kind: LocatorID, Value: "go"}},
			expected: ClickScript(Locator{Kind: LocatorID, Value: "go"}),
		},
		{
			name:     "Input compiles a set-value script",
			action:   Action{Type: ActionInput, Locator: Locator{Kind: LocatorID, Value: "q"}, Value: "golang"},
			expected: InputScript(Locator{Kind: LocatorID, Value: "q"}, "golang"),
		},
		{
			name:     "Select compiles a change script",
			action:   Action{Type: ActionSelect, Locator: Locator{Kind: LocatorCSS, Value: "#lang"}, Value: "go"},
			expected: SelectScript(Locator{Kind: LocatorCSS, Value: "#lang"}, "go"),
		},
		{
			name:     "Scroll compiles coordinates",
			action:   Action{Type: ActionScroll, Value: "10, 400"},
			expected: ScrollScript(10, 400),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(surface.dispatched())
			result := exec.Execute(context.Background(), tt.action)

			assert.False(t, result.Success)
			assert.Equal(t, "page crashed", result.Error)

			scripts := surface.dispatched()
			require.Len(t, scripts, before+1)
			assert.Equal(t, tt.expected, scripts[before])
		})
	}
}

func TestLiveExecutorWait(t *testing.T) {
	surface := newFakeSurface()
	exec := NewLiveExecutor(surface)

	result := exec.Execute(context.Background(), Action{Type: ActionWait, Value: "10"})
	assert.True(t, result.Success)
	assert.Empty(t, surface.dispatched())
}

func TestLiveExecutorAssert(t *testing.T) {
	tests := []struct {
		name        string
		result      any
		err         error
		wantSuccess bool
		wantError   string
	}{
		{name: "Element found", result: true, wantSuccess: true},
		{name: "Element missing", result: false, wantSuccess: false, wantError: "Assertion failed: element not found"},
		{name: "Nil result fails", result: nil, wantSuccess: false, wantError: "Assertion failed: element not found"},
		{name: "Dispatch error propagates as text", err: errors.New("eval failed"), wantSuccess: false, wantError: "eval failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			surface.results = []any{tt.result}
			surface.err = tt.err
			exec := NewLiveExecutor(surface)

			result := exec.Execute(context.Background(), Action{
				Type:    ActionAssert,
				Locator: Locator{Kind: LocatorCSS, Value: ".dashboard"},
			})
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantError, result.Error)

			scripts := surface.dispatched()
			require.Len(t, scripts, 1)
			assert.Equal(t, ExistsScript(Locator{Kind: LocatorCSS, Value: ".dashboard"}), scripts[0])
		})
	}
}

func TestLiveExecutorUnknownTypeIsTimedNoop(t *testing.T) {
	surface := newFakeSurface()
	exec := NewLiveExecutor(surface)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := exec.Execute(ctx, Action{Type: "hover"})
	assert.True(t, result.Success)
	assert.Empty(t, surface.dispatched())
}

func TestParseScrollXY(t *testing.T) {
	tests := []struct {
		name  string
		value string
		x, y  int
	}{
		{name: "Both coordinates", value: "10,400", x: 10, y: 400},
		{name: "Spaces tolerated", value: " 10 , 400 ", x: 10, y: 400},
		{name: "Missing y defaults", value: "10", x: 10, y: 0},
		{name: "Empty defaults", value: "", x: 0, y: 0},
		{name: "Garbage defaults", value: "a,b", x: 0, y: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := parseScrollXY(tt.value)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy(float64(0)))
	assert.True(t, truthy(true))
	assert.True(t, truthy("found"))
	assert.True(t, truthy(float64(1)))
	assert.True(t, truthy(struct{}{}))
}
