package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Configuration
		wantErr error
	}{
		{
			name: "Valid configuration",
			config: &Configuration{
				Name: "login",
				Actions: []Action{
					{Name: "open", Type: ActionNavigate, Value: "https://example.com"},
				},
			},
		},
		{
			name:   "Empty action list is valid",
			config: &Configuration{Name: "empty"},
		},
		{
			name:    "Nil configuration",
			config:  nil,
			wantErr: ErrNilConfiguration,
		},
		{
			name:    "Missing name",
			config:  &Configuration{Actions: []Action{{Type: ActionClick}}},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name: "Action without type",
			config: &Configuration{
				Name:    "broken",
				Actions: []Action{{Name: "mystery"}},
			},
			wantErr: ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigurationClone(t *testing.T) {
	original := &Configuration{
		Name:        "login",
		Description: "demo",
		Actions: []Action{
			{
				Name:     "open",
				Type:     ActionNavigate,
				Value:    "https://example.com",
				Metadata: map[string]string{"recorded": "2026-01-01"},
			},
		},
	}

	clone := original.Clone()
	clone.Actions[0].Name = "mutated"
	clone.Actions[0].Metadata["recorded"] = "mutated"

	assert.Equal(t, "open", original.Actions[0].Name)
	assert.Equal(t, "2026-01-01", original.Actions[0].Metadata["recorded"])
}
