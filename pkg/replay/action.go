package replay

import (
	"errors"
	"fmt"
)

var (
	ErrNoConfiguration      = errors.New("no configuration loaded")
	ErrNilConfiguration     = errors.New("configuration is nil")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrAlreadyRunning       = errors.New("a run is already in progress")
)

// LocatorKind identifies how a target element is looked up.
type LocatorKind string

const (
	LocatorID    LocatorKind = "id"
	LocatorCSS   LocatorKind = "css"
	LocatorXPath LocatorKind = "xpath"
	LocatorText  LocatorKind = "text"
	LocatorNone  LocatorKind = "none"
)

// Locator describes how to find a target element on the page.
type Locator struct {
	Kind   LocatorKind `json:"kind" yaml:"kind"`
	Value  string      `json:"value,omitempty" yaml:"value,omitempty"`
	Unique bool        `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// ActionType classifies one automation step. Unknown values are still
// executable and take the fallback execution paths.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionInput       ActionType = "input"
	ActionSelect      ActionType = "select"
	ActionNavigate    ActionType = "navigate"
	ActionWait        ActionType = "wait"
	ActionScroll      ActionType = "scroll"
	ActionScreenshot  ActionType = "screenshot"
	ActionAssert      ActionType = "assert"
	ActionSwitchFrame ActionType = "switch_frame"
	ActionRunScript   ActionType = "run_script"
)

// Action is one recorded automation step. The Value payload depends on the
// type: a URL for navigate, text for input/select, milliseconds for wait,
// "x,y" coordinates for scroll.
type Action struct {
	Name     string            `json:"name" yaml:"name"`
	Category string            `json:"category,omitempty" yaml:"category,omitempty"`
	Type     ActionType        `json:"type" yaml:"type"`
	Locator  Locator           `json:"locator" yaml:"locator"`
	Value    string            `json:"value,omitempty" yaml:"value,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Configuration is a named, ordered list of actions. Loading a new one
// replaces the prior one and resets all run state.
type Configuration struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Actions     []Action `json:"actions" yaml:"actions"`
}

// Validate checks the structural shape of the configuration. Scripts and
// action semantics are not validated here; unknown action types execute
// through the fallback paths.
func (c *Configuration) Validate() error {
	if c == nil {
		return ErrNilConfiguration
	}
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfiguration)
	}
	for i, a := range c.Actions {
		if a.Type == "" {
			return fmt.Errorf("%w: action %d has no type", ErrInvalidConfiguration, i)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration so callers cannot mutate
// a loaded one in place.
func (c *Configuration) Clone() *Configuration {
	actions := make([]Action, len(c.Actions))
	copy(actions, c.Actions)
	for i, a := range c.Actions {
		if a.Metadata != nil {
			md := make(map[string]string, len(a.Metadata))
			for k, v := range a.Metadata {
				md[k] = v
			}
			actions[i].Metadata = md
		}
	}
	return &Configuration{
		Name:        c.Name,
		Description: c.Description,
		Actions:     actions,
	}
}
