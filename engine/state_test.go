package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentState_String(t *testing.T) {
	tables := []struct {
		name  string
		state ComponentState
		want  string
	}{
		{"disconnected", ComponentStateDisconnected, "Disconnected"},
		{"gathering", ComponentStateGathering, "Gathering"},
		{"connecting", ComponentStateConnecting, "Connecting"},
		{"connected", ComponentStateConnected, "Connected"},
		{"ready", ComponentStateReady, "Ready"},
		{"failed", ComponentStateFailed, "Failed"},
		{"invalid", ComponentState(42), "INVALID_COMPONENT_STATE"},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, table.state.String())
		})
	}
}

func TestComponentState_Rank(t *testing.T) {
	ordered := []ComponentState{
		ComponentStateDisconnected,
		ComponentStateGathering,
		ComponentStateConnecting,
		ComponentStateConnected,
		ComponentStateReady,
		ComponentStateFailed,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), "%s must rank above %s", ordered[i], ordered[i-1])
	}
}

func TestComponentState_Reached(t *testing.T) {
	tables := []struct {
		name   string
		state  ComponentState
		target ComponentState
		want   bool
	}{
		{"same state", ComponentStateConnected, ComponentStateConnected, true},
		{"past target", ComponentStateReady, ComponentStateConnected, true},
		{"before target", ComponentStateConnecting, ComponentStateConnected, false},
		{"failed never reaches", ComponentStateFailed, ComponentStateConnected, false},
		{"failed does not reach failed", ComponentStateFailed, ComponentStateFailed, false},
		{"anything reaches disconnected", ComponentStateGathering, ComponentStateDisconnected, true},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, table.state.Reached(table.target))
		})
	}
}

func TestParseCompatibility(t *testing.T) {
	for c := CompatibilityRFC5245; c <= CompatibilityOC2007R2; c++ {
		parsed, err := ParseCompatibility(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCompatibility("draft19")
	assert.ErrorIs(t, err, ErrUnsupportedCompatibility)
}
