// Package config holds the iceagent command configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/netbirdio/iceagent/engine"
	"github.com/netbirdio/iceagent/engine/pionice"
	nberrors "github.com/netbirdio/iceagent/errors"
	"github.com/netbirdio/iceagent/metrics"
	"github.com/netbirdio/iceagent/version"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	ICE     ICEConfig     `yaml:"ice"`
	Stream  StreamConfig  `yaml:"stream"`
	Metrics MetricsConfig `yaml:"metrics"`
	STUN    STUNConfig    `yaml:"stun"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ICEConfig tunes the pion engine. Zero timeouts defer to the ICEAGENT_ICE_* environment variables.
type ICEConfig struct {
	Compatibility       string        `yaml:"compatibility"`
	Software            string        `yaml:"software"`
	STUNURLs            []string      `yaml:"stunURLs"`
	IncludeLoopback     bool          `yaml:"includeLoopback"`
	DisableIPv6         bool          `yaml:"disableIPv6"`
	InterfaceBlackList  []string      `yaml:"interfaceBlackList"`
	KeepAliveInterval   time.Duration `yaml:"keepAliveInterval"`
	DisconnectedTimeout time.Duration `yaml:"disconnectedTimeout"`
	FailedTimeout       time.Duration `yaml:"failedTimeout"`
}

// StreamConfig shapes the streams the commands build.
type StreamConfig struct {
	Components        int    `yaml:"components"`
	InboundBufferSize int    `yaml:"inboundBufferSize"`
	PortMin           uint16 `yaml:"portMin"`
	PortMax           uint16 `yaml:"portMax"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address  string `yaml:"address"`
	Endpoint string `yaml:"endpoint"`
}

// STUNConfig runs the embedded STUN server. Its URLs are appended to ICE.STUNURLs.
type STUNConfig struct {
	Enabled         bool     `yaml:"enabled"`
	ListenAddresses []string `yaml:"listenAddresses"`
	Software        string   `yaml:"software"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			File:  "console",
		},
		ICE: ICEConfig{
			Compatibility: engine.CompatibilityRFC5245.String(),
			Software:      version.Software(),
		},
		Stream: StreamConfig{
			Components:        1,
			InboundBufferSize: 10,
		},
		Metrics: MetricsConfig{
			Endpoint: metrics.DefaultEndpoint,
		},
		STUN: STUNConfig{
			ListenAddresses: []string{"127.0.0.1:0"},
			Software:        version.Software(),
		},
	}
}

// Load reads the YAML file at path on top of Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	log.Debugf("loaded config from %s", path)
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("log.level: %w", err))
	}

	if _, err := engine.ParseCompatibility(c.ICE.Compatibility); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("ice.compatibility %q: %w", c.ICE.Compatibility, err))
	}
	if strings.ContainsRune(c.ICE.Software, 0) {
		merr = multierror.Append(merr, errors.New("ice.software must not contain NUL bytes"))
	}
	for name, d := range map[string]time.Duration{
		"ice.keepAliveInterval":   c.ICE.KeepAliveInterval,
		"ice.disconnectedTimeout": c.ICE.DisconnectedTimeout,
		"ice.failedTimeout":       c.ICE.FailedTimeout,
	} {
		if d < 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s must not be negative", name))
		}
	}

	if c.Stream.Components < 1 {
		merr = multierror.Append(merr, fmt.Errorf("stream.components must be at least 1, got %d", c.Stream.Components))
	}
	if c.Stream.InboundBufferSize < 1 {
		merr = multierror.Append(merr, fmt.Errorf("stream.inboundBufferSize must be at least 1, got %d", c.Stream.InboundBufferSize))
	}
	if (c.Stream.PortMin == 0) != (c.Stream.PortMax == 0) {
		merr = multierror.Append(merr, errors.New("stream.portMin and stream.portMax must be set together"))
	} else if c.Stream.PortMin > c.Stream.PortMax {
		merr = multierror.Append(merr, fmt.Errorf("stream port range %d-%d is empty", c.Stream.PortMin, c.Stream.PortMax))
	}

	if c.Metrics.Address != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("metrics.address: %w", err))
		}
		if !strings.HasPrefix(c.Metrics.Endpoint, "/") {
			merr = multierror.Append(merr, fmt.Errorf("metrics.endpoint %q must start with /", c.Metrics.Endpoint))
		}
	}

	if c.STUN.Enabled {
		if len(c.STUN.ListenAddresses) == 0 {
			merr = multierror.Append(merr, errors.New("stun.listenAddresses is required when stun is enabled"))
		}
		seen := make(map[string]bool)
		for _, addr := range c.STUN.ListenAddresses {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("stun listen address %q: %w", addr, err))
			}
			if seen[addr] {
				merr = multierror.Append(merr, fmt.Errorf("duplicate stun listen address %q", addr))
			}
			seen[addr] = true
		}
	}

	return nberrors.FormatErrorOrNil(merr)
}

// Compatibility returns the parsed ICE compatibility mode.
func (c *Config) Compatibility() (engine.Compatibility, error) {
	return engine.ParseCompatibility(c.ICE.Compatibility)
}

// EngineConfig converts the ICE section into the pion engine configuration. extraSTUNURLs are
// appended after the configured ones.
func (c *Config) EngineConfig(extraSTUNURLs ...string) (pionice.Config, error) {
	compat, err := c.Compatibility()
	if err != nil {
		return pionice.Config{}, err
	}

	urls := make([]string, 0, len(c.ICE.STUNURLs)+len(extraSTUNURLs))
	urls = append(urls, c.ICE.STUNURLs...)
	urls = append(urls, extraSTUNURLs...)

	return pionice.Config{
		Compatibility:       compat,
		STUNURLs:            urls,
		IncludeLoopback:     c.ICE.IncludeLoopback,
		DisableIPv6:         c.ICE.DisableIPv6,
		InterfaceBlackList:  c.ICE.InterfaceBlackList,
		KeepAliveInterval:   c.ICE.KeepAliveInterval,
		DisconnectedTimeout: c.ICE.DisconnectedTimeout,
		FailedTimeout:       c.ICE.FailedTimeout,
	}, nil
}
