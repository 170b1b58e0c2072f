package configstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivikasavnish/go-replay/pkg/replay"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.json")

	cfg := Sample()
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, loaded.Name)
	assert.Equal(t, cfg.Description, loaded.Description)
	require.Len(t, loaded.Actions, len(cfg.Actions))
	assert.Equal(t, cfg.Actions[0].Type, loaded.Actions[0].Type)
	assert.Equal(t, cfg.Actions[1].Locator, loaded.Actions[1].Locator)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")

	yamlDoc := `name: search
description: run a search
actions:
  - name: open
    type: navigate
    value: https://example.com
  - name: type query
    type: input
    locator:
      kind: id
      value: q
    value: golang
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "search", cfg.Name)
	require.Len(t, cfg.Actions, 2)
	assert.Equal(t, replay.ActionInput, cfg.Actions[1].Type)
	assert.Equal(t, replay.LocatorID, cfg.Actions[1].Locator.Kind)
	assert.Equal(t, "q", cfg.Actions[1].Locator.Value)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
	})

	t.Run("Unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("name = 'x'"), 0644))
		_, err := Load(path)
		require.ErrorContains(t, err, "unsupported configuration file type")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("Structurally invalid configuration", func(t *testing.T) {
		path := filepath.Join(dir, "unnamed.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"actions":[]}`), 0644))
		_, err := Load(path)
		require.ErrorIs(t, err, replay.ErrInvalidConfiguration)
	})
}

func TestSaveRejectsInvalidConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	err := Save(&replay.Configuration{}, path)
	require.ErrorIs(t, err, replay.ErrInvalidConfiguration)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "older.json")
	require.NoError(t, Save(&replay.Configuration{Name: "older"}, older))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	require.NoError(t, Save(Sample(), filepath.Join(dir, "newer.json")))

	// Unparseable files are skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "sample-login", entries[0].Name)
	assert.Equal(t, len(Sample().Actions), entries[0].Actions)
	assert.Equal(t, "older", entries[1].Name)
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
