// Package configstore loads, saves and discovers replay configuration files.
// Configurations are plain JSON or YAML documents; the engine only cares
// about their structural shape.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivikasavnish/go-replay/pkg/replay"
)

// Entry describes one discovered configuration file.
type Entry struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Actions     int       `json:"actions"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Load parses a single configuration file. The format is chosen by
// extension: .json, .yaml or .yml.
func Load(path string) (*replay.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg replay.Configuration
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported configuration file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as indented JSON.
func Save(cfg *replay.Configuration, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Scan lists the parseable configuration files in a directory, newest
// modification first. Files that fail to parse are skipped.
func Scan(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var entries []Entry
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		path := filepath.Join(dir, file.Name())
		cfg, err := Load(path)
		if err != nil {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:        path,
			Name:        cfg.Name,
			Description: cfg.Description,
			Actions:     len(cfg.Actions),
			ModifiedAt:  info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}
