// Package cmd implements the iceagent command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netbirdio/iceagent/config"
	"github.com/netbirdio/iceagent/util"
)

// flagValues holds the persistent flags. Only flags that were set, on the command line or through
// ICEAGENT_* variables, override the config file.
type flagValues struct {
	configPath      string
	logLevel        string
	logFile         string
	software        string
	stunURLs        []string
	includeLoopback bool
	components      int
	bufferSize      int
	portMin         uint16
	portMax         uint16
	metricsAddress  string
	enableSTUN      bool
	stunListen      []string
	timeout         time.Duration
}

var (
	flags   = &flagValues{}
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:               "iceagent",
		Short:             "ICE agent toolbox",
		Long:              "Gather ICE candidates and run loopback connectivity checks with the iceagent library",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	defaults := config.Default()

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", defaults.Log.Level, "log level (panic, fatal, error, warn, info, debug, trace)")
	pf.StringVar(&flags.logFile, "log-file", defaults.Log.File, "log file, console or stdout")
	pf.StringVar(&flags.software, "software", defaults.ICE.Software, "SOFTWARE attribute advertised by the agents")
	pf.StringSliceVar(&flags.stunURLs, "stun-url", nil, "STUN server URL used for server reflexive candidates (can be repeated)")
	pf.BoolVar(&flags.includeLoopback, "include-loopback", defaults.ICE.IncludeLoopback, "gather loopback candidates")
	pf.IntVarP(&flags.components, "components", "n", defaults.Stream.Components, "components per stream")
	pf.IntVar(&flags.bufferSize, "inbound-buffer-size", defaults.Stream.InboundBufferSize, "packets buffered per component before dropping")
	pf.Uint16Var(&flags.portMin, "port-min", 0, "lowest local port for host candidates")
	pf.Uint16Var(&flags.portMax, "port-max", 0, "highest local port for host candidates")
	pf.StringVar(&flags.metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9090")
	pf.BoolVar(&flags.enableSTUN, "enable-stun", false, "run an embedded STUN server and gather from it")
	pf.StringSliceVar(&flags.stunListen, "stun-listen-address", defaults.STUN.ListenAddresses, "listen addresses of the embedded STUN server")
	pf.DurationVar(&flags.timeout, "timeout", 30*time.Second, "overall deadline of the command")

	rootCmd.AddCommand(gatherCmd, loopbackCmd, versionCmd)

	util.SetFlagsFromEnvVars(rootCmd)
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	flags.apply(cmd.Root().PersistentFlags(), loaded)

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := util.InitLog(loaded.Log.Level, loaded.Log.File); err != nil {
		return fmt.Errorf("failed to initialize log: %w", err)
	}

	cfg = loaded
	log.Debugf("running %s with %d component(s) per stream", cmd.Name(), cfg.Stream.Components)
	return nil
}

func (f *flagValues) apply(fs *pflag.FlagSet, c *config.Config) {
	if fs.Changed("log-level") {
		c.Log.Level = f.logLevel
	}
	if fs.Changed("log-file") {
		c.Log.File = f.logFile
	}
	if fs.Changed("software") {
		c.ICE.Software = f.software
	}
	if fs.Changed("stun-url") {
		c.ICE.STUNURLs = f.stunURLs
	}
	if fs.Changed("include-loopback") {
		c.ICE.IncludeLoopback = f.includeLoopback
	}
	if fs.Changed("components") {
		c.Stream.Components = f.components
	}
	if fs.Changed("inbound-buffer-size") {
		c.Stream.InboundBufferSize = f.bufferSize
	}
	if fs.Changed("port-min") {
		c.Stream.PortMin = f.portMin
	}
	if fs.Changed("port-max") {
		c.Stream.PortMax = f.portMax
	}
	if fs.Changed("metrics-address") {
		c.Metrics.Address = f.metricsAddress
	}
	if fs.Changed("enable-stun") {
		c.STUN.Enabled = f.enableSTUN
	}
	if fs.Changed("stun-listen-address") {
		c.STUN.ListenAddresses = f.stunListen
	}
}

// commandContext bounds the command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, flags.timeout)
}
