package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/iceagent/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iceagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
ice:
  stunURLs: ["stun:stun.example.org:3478"]
  includeLoopback: true
  keepAliveInterval: 2s
  failedTimeout: 10s
stream:
  components: 2
  portMin: 40000
  portMax: 40010
metrics:
  address: 127.0.0.1:9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.File, "unset keys keep their defaults")
	assert.Equal(t, 2, cfg.Stream.Components)
	assert.Equal(t, 10, cfg.Stream.InboundBufferSize)
	assert.Equal(t, uint16(40000), cfg.Stream.PortMin)
	assert.Equal(t, 2*time.Second, cfg.ICE.KeepAliveInterval)

	engineCfg, err := cfg.EngineConfig("stun:127.0.0.1:3478")
	require.NoError(t, err)
	assert.Equal(t, engine.CompatibilityRFC5245, engineCfg.Compatibility)
	assert.Equal(t, []string{"stun:stun.example.org:3478", "stun:127.0.0.1:3478"}, engineCfg.STUNURLs)
	assert.True(t, engineCfg.IncludeLoopback)
	assert.Equal(t, 10*time.Second, engineCfg.FailedTimeout)
	assert.Zero(t, engineCfg.DisconnectedTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "stream: [not, a, map]"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "unknown compatibility",
			mutate:  func(c *Config) { c.ICE.Compatibility = "draft19" },
			wantErr: "ice.compatibility",
		},
		{
			name:    "NUL in software",
			mutate:  func(c *Config) { c.ICE.Software = "a\x00b" },
			wantErr: "NUL",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.ICE.FailedTimeout = -time.Second },
			wantErr: "ice.failedTimeout",
		},
		{
			name:    "no components",
			mutate:  func(c *Config) { c.Stream.Components = 0 },
			wantErr: "stream.components",
		},
		{
			name:    "zero buffer",
			mutate:  func(c *Config) { c.Stream.InboundBufferSize = 0 },
			wantErr: "stream.inboundBufferSize",
		},
		{
			name:    "half port range",
			mutate:  func(c *Config) { c.Stream.PortMin = 4000 },
			wantErr: "set together",
		},
		{
			name: "inverted port range",
			mutate: func(c *Config) {
				c.Stream.PortMin = 5000
				c.Stream.PortMax = 4000
			},
			wantErr: "is empty",
		},
		{
			name:    "bad metrics address",
			mutate:  func(c *Config) { c.Metrics.Address = "9090" },
			wantErr: "metrics.address",
		},
		{
			name: "bad metrics endpoint",
			mutate: func(c *Config) {
				c.Metrics.Address = ":9090"
				c.Metrics.Endpoint = "metrics"
			},
			wantErr: "metrics.endpoint",
		},
		{
			name: "stun without listeners",
			mutate: func(c *Config) {
				c.STUN.Enabled = true
				c.STUN.ListenAddresses = nil
			},
			wantErr: "stun.listenAddresses",
		},
		{
			name: "duplicate stun listener",
			mutate: func(c *Config) {
				c.STUN.Enabled = true
				c.STUN.ListenAddresses = []string{"127.0.0.1:3478", "127.0.0.1:3478"}
			},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Stream.Components = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestConfig_EngineConfigUnknownCompatibility(t *testing.T) {
	cfg := Default()
	cfg.ICE.Compatibility = "msn2"
	_, err := cfg.EngineConfig()
	assert.ErrorIs(t, err, engine.ErrUnsupportedCompatibility)
}
