package util

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagNameToUpper(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "log-level", want: "LOG_LEVEL"},
		{in: "components", want: "COMPONENTS"},
		{in: "stun-listen-address", want: "STUN_LISTEN_ADDRESS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, flagNameToUpper(tt.in))
	}
}

func TestSetFlagsFromEnvVars(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	level := cmd.PersistentFlags().String("log-level", "info", "")
	components := cmd.PersistentFlags().Int("components", 1, "")
	file := cmd.PersistentFlags().String("log-file", "console", "")

	require.NoError(t, cmd.PersistentFlags().Set("log-file", "/tmp/explicit.log"))

	t.Setenv("ICEAGENT_LOG_LEVEL", "debug")
	t.Setenv("ICEAGENT_COMPONENTS", "not-a-number")
	t.Setenv("ICEAGENT_LOG_FILE", "/tmp/env.log")

	SetFlagsFromEnvVars(cmd)

	assert.Equal(t, "debug", *level)
	assert.Equal(t, 1, *components, "invalid values are ignored")
	assert.Equal(t, "/tmp/explicit.log", *file, "explicit flags win over env")
}
