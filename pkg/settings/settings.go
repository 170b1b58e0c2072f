// Package settings is the policy boundary for the replay engine: defaults,
// optional YAML file, environment overrides, and validation of values the
// runner itself assumes to be sane.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSpeed = errors.New("speed multiplier must be positive")

// Settings holds the run-time policies and wiring options. The recommended
// speed range is 0.5–2.0 but only positivity is enforced.
type Settings struct {
	SpeedMultiplier float64 `yaml:"speed_multiplier"`
	HumanDelay      bool    `yaml:"human_delay"`
	StopOnError     bool    `yaml:"stop_on_error"`
	Live            bool    `yaml:"live"`
	Headless        bool    `yaml:"headless"`
	StartURL        string  `yaml:"start_url"`
	ConfigDir       string  `yaml:"config_dir"`
	HistoryPath     string  `yaml:"history_path"`
	ListenAddr      string  `yaml:"listen_addr"`
}

// Default returns the baseline settings.
func Default() Settings {
	return Settings{
		SpeedMultiplier: 1.0,
		HumanDelay:      false,
		StopOnError:     true,
		Live:            false,
		Headless:        true,
		ConfigDir:       "./configs",
		HistoryPath:     "./replay-history.db",
		ListenAddr:      ":8585",
	}
}

// Load builds settings from defaults, an optional YAML file, and REPLAY_*
// environment variables, in that order of precedence.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v, ok := lookupFloat("REPLAY_SPEED"); ok {
		s.SpeedMultiplier = v
	}
	if v, ok := lookupBool("REPLAY_HUMAN_DELAY"); ok {
		s.HumanDelay = v
	}
	if v, ok := lookupBool("REPLAY_STOP_ON_ERROR"); ok {
		s.StopOnError = v
	}
	if v, ok := lookupBool("REPLAY_LIVE"); ok {
		s.Live = v
	}
	if v, ok := lookupBool("REPLAY_HEADLESS"); ok {
		s.Headless = v
	}
	if v := os.Getenv("REPLAY_START_URL"); v != "" {
		s.StartURL = v
	}
	if v := os.Getenv("REPLAY_CONFIG_DIR"); v != "" {
		s.ConfigDir = v
	}
	if v := os.Getenv("REPLAY_HISTORY_PATH"); v != "" {
		s.HistoryPath = v
	}
	if v := os.Getenv("REPLAY_LISTEN_ADDR"); v != "" {
		s.ListenAddr = v
	}
}

// Validate rejects values the runner assumes are already sane.
func (s *Settings) Validate() error {
	if s.SpeedMultiplier <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, s.SpeedMultiplier)
	}
	return nil
}

func lookupFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
