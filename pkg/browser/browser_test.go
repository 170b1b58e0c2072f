package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToHeadless(t *testing.T) {
	b := New(nil)
	assert.True(t, b.config.Headless)
}

func TestOpenBeforeStart(t *testing.T) {
	b := New(&Config{Headless: true})
	require.ErrorIs(t, b.Open("https://example.com"), ErrNotStarted)
}

func TestStopWithoutStart(t *testing.T) {
	b := New(nil)
	assert.NoError(t, b.Stop())
}

func TestSurfaceWithoutPage(t *testing.T) {
	b := New(nil)
	surface := b.Surface()

	assert.False(t, surface.IsAvailable())
	_, err := surface.ExecuteScript(context.Background(), "() => true")
	require.ErrorIs(t, err, ErrNotStarted)

	var nilSurface *Surface
	assert.False(t, nilSurface.IsAvailable())
}
