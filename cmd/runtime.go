package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netbirdio/iceagent/agent"
	"github.com/netbirdio/iceagent/config"
	"github.com/netbirdio/iceagent/engine/pionice"
	nberrors "github.com/netbirdio/iceagent/errors"
	"github.com/netbirdio/iceagent/eventloop"
	"github.com/netbirdio/iceagent/metrics"
	"github.com/netbirdio/iceagent/stun"
)

const shutdownTimeout = 5 * time.Second

// runtime owns everything a command starts in the background: event loops, agent drive loops and
// the optional metrics and STUN servers.
type runtime struct {
	cfg       *config.Config
	engineCfg pionice.Config

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	metricsServer *metrics.Server
	agentMetrics  *metrics.AgentMetrics
	stunServer    *stun.Server

	agents []*agent.Agent
	loops  []*eventloop.Loop
}

// startRuntime starts the servers enabled in c. Resources are created before any goroutine is
// started so that a failure leaves nothing running.
func startRuntime(ctx context.Context, c *config.Config) (*runtime, error) {
	rt := &runtime{cfg: c}

	if c.Metrics.Address != "" {
		srv, err := metrics.NewServer(c.Metrics.Address, c.Metrics.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("setup metrics: %w", err)
		}
		am, err := metrics.NewAgentMetrics(srv.Meter)
		if err != nil {
			return nil, fmt.Errorf("setup agent metrics: %w", err)
		}
		rt.metricsServer = srv
		rt.agentMetrics = am
	}

	var extraURLs []string
	if c.STUN.Enabled {
		srv, err := stun.Listen(c.STUN.ListenAddresses, c.STUN.Software)
		if err != nil {
			_ = rt.shutdownServers()
			return nil, fmt.Errorf("setup STUN server: %w", err)
		}
		rt.stunServer = srv
		extraURLs = srv.URLs()
	}

	engineCfg, err := c.EngineConfig(extraURLs...)
	if err != nil {
		_ = rt.shutdownServers()
		return nil, err
	}
	rt.engineCfg = engineCfg

	rt.ctx, rt.cancel = context.WithCancel(ctx)
	rt.group, rt.ctx = errgroup.WithContext(rt.ctx)

	if rt.metricsServer != nil {
		rt.group.Go(func() error {
			log.Infof("serving metrics on %s%s", c.Metrics.Address, rt.metricsServer.Endpoint)
			return rt.metricsServer.ListenAndServe()
		})
	}
	if rt.stunServer != nil {
		rt.group.Go(func() error {
			if err := rt.stunServer.Serve(); !errors.Is(err, stun.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	return rt, nil
}

// newAgent creates an agent with its own event loop and starts both loops.
func (rt *runtime) newAgent(controlling bool) (*agent.Agent, error) {
	loop := eventloop.New()
	a, err := agent.New(loop, rt.engineCfg.Compatibility,
		agent.WithEngineConfig(rt.engineCfg),
		agent.WithMetrics(rt.agentMetrics),
	)
	if err != nil {
		return nil, err
	}
	a.SetSoftware(rt.cfg.ICE.Software)
	a.SetControllingMode(controlling)

	rt.agents = append(rt.agents, a)
	rt.loops = append(rt.loops, loop)

	rt.group.Go(func() error {
		if err := loop.Run(rt.ctx); !isShutdown(err) {
			return fmt.Errorf("event loop of agent %s: %w", a.ID(), err)
		}
		return nil
	})
	rt.group.Go(func() error {
		if err := a.Run(rt.ctx); !isShutdown(err) {
			return fmt.Errorf("drive loop of agent %s: %w", a.ID(), err)
		}
		return nil
	})

	return a, nil
}

// buildStream builds a stream shaped by the stream section of the config.
func (rt *runtime) buildStream(a *agent.Agent) (*agent.Stream, error) {
	b := a.StreamBuilder(rt.cfg.Stream.Components).SetInboundBufferSize(rt.cfg.Stream.InboundBufferSize)
	if rt.cfg.Stream.PortMin != 0 {
		b.SetPortRange(rt.cfg.Stream.PortMin, rt.cfg.Stream.PortMax)
	}
	return b.Build()
}

// close tears everything down and reports the first background failure together with teardown
// errors.
func (rt *runtime) close() error {
	var merr *multierror.Error
	for _, a := range rt.agents {
		if err := a.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close agent %s: %w", a.ID(), err))
		}
	}

	rt.cancel()
	for _, loop := range rt.loops {
		loop.Quit()
	}

	if err := rt.shutdownServers(); err != nil {
		merr = multierror.Append(merr, err)
	}

	if err := rt.group.Wait(); err != nil && !isShutdown(err) {
		merr = multierror.Append(merr, err)
	}
	return nberrors.FormatErrorOrNil(merr)
}

func (rt *runtime) shutdownServers() error {
	var merr *multierror.Error
	if rt.stunServer != nil {
		if err := rt.stunServer.Shutdown(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close STUN server: %w", err))
		}
	}
	if rt.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.metricsServer.Shutdown(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close metrics server: %w", err))
		}
	}
	return nberrors.FormatErrorOrNil(merr)
}

func isShutdown(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, agent.ErrAgentClosed) ||
		errors.Is(err, eventloop.ErrLoopQuit)
}
