// Package agent turns a callback driven ICE engine into a goroutine-safe API.
//
// The engine reports candidates, gathering completion and component state changes from its event
// loop goroutine. The Agent routes those reports through registries into per-stream and
// per-component channels, and funnels every call into the engine through a single control queue
// drained by Run.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/engine"
	"github.com/netbirdio/iceagent/engine/pionice"
	"github.com/netbirdio/iceagent/eventloop"
	"github.com/netbirdio/iceagent/internal/mpsc"
	"github.com/netbirdio/iceagent/metrics"
)

var (
	// ErrAgentClosed is returned by Run and Build once Close has been called.
	ErrAgentClosed = errors.New("agent closed")
	// ErrAlreadyRunning is returned by Run when another Run call is active.
	ErrAlreadyRunning = errors.New("agent drive loop already running")
)

// Option customises an Agent.
type Option func(*options)

type options struct {
	metrics      *metrics.AgentMetrics
	engineConfig *pionice.Config
}

// WithMetrics records agent activity on m.
func WithMetrics(m *metrics.AgentMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEngineConfig replaces the pion engine defaults used by New. The compatibility passed to New
// takes precedence over cfg.Compatibility.
func WithEngineConfig(cfg pionice.Config) Option {
	return func(o *options) {
		o.engineConfig = &cfg
	}
}

// Agent owns an engine, the control queue feeding it and the callback registries.
type Agent struct {
	id      string
	log     *log.Entry
	metrics *metrics.AgentMetrics

	// engineMu serialises every call into engine.
	engineMu sync.Mutex
	engine   engine.Engine

	control    *mpsc.Queue[controlMsg]
	candidates *candidateRegistry
	states     *stateRegistry

	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates an agent backed by a pion engine whose callbacks run on loop. The caller runs loop
// and the agent's drive loop.
func New(loop *eventloop.Loop, compat engine.Compatibility, opts ...Option) (*Agent, error) {
	o := applyOptions(opts)

	cfg := pionice.DefaultConfig()
	if o.engineConfig != nil {
		cfg = *o.engineConfig
	}
	cfg.Compatibility = compat

	e, err := pionice.New(loop, cfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return newAgent(e, o)
}

// NewRFC5245 creates an agent speaking standard ICE.
func NewRFC5245(loop *eventloop.Loop, opts ...Option) (*Agent, error) {
	return New(loop, engine.CompatibilityRFC5245, opts...)
}

// NewWithEngine creates an agent on top of e. The agent takes ownership of e and closes it in
// Close.
func NewWithEngine(e engine.Engine, opts ...Option) (*Agent, error) {
	return newAgent(e, applyOptions(opts))
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newAgent(e engine.Engine, o *options) (*Agent, error) {
	id := uuid.NewString()
	a := &Agent{
		id:         id,
		log:        log.WithField("agent", id),
		metrics:    o.metrics,
		engine:     e,
		control:    mpsc.New[controlMsg](),
		candidates: newCandidateRegistry(),
		states:     newStateRegistry(),
	}

	if err := e.OnNewCandidate(a.onNewCandidate); err != nil {
		return nil, fmt.Errorf("register candidate hook: %w", err)
	}
	if err := e.OnCandidateGatheringDone(a.onGatheringDone); err != nil {
		return nil, fmt.Errorf("register gathering done hook: %w", err)
	}
	if err := e.OnComponentStateChanged(a.onStateChanged); err != nil {
		return nil, fmt.Errorf("register component state hook: %w", err)
	}

	a.log.Debugf("agent created")
	return a, nil
}

// ID returns the identifier the agent logs with.
func (a *Agent) ID() string {
	return a.id
}

// SetSoftware sets the software name announced by the engine. It panics if name contains a NUL
// byte.
func (a *Agent) SetSoftware(name string) {
	if strings.IndexByte(name, 0) >= 0 {
		panic("agent: software name contains a NUL byte")
	}
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	a.engine.SetSoftware(name)
}

// SetControllingMode selects the ICE role for connectivity checks started afterwards.
func (a *Agent) SetControllingMode(controlling bool) {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	a.engine.SetControllingMode(controlling)
}

// StreamBuilder starts the configuration of a stream with the given number of components.
func (a *Agent) StreamBuilder(components int) *StreamBuilder {
	return newStreamBuilder(a, components)
}

// Run applies control messages until ctx is done or the agent is closed. It must be running for
// remote credentials, remote candidates, sends and stream removals to take effect.
func (a *Agent) Run(ctx context.Context) error {
	if a.closed.Load() {
		return ErrAgentClosed
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	for {
		msg, err := a.control.Pop(ctx)
		if err != nil {
			if errors.Is(err, mpsc.ErrClosed) {
				return ErrAgentClosed
			}
			return err
		}
		a.handleMsg(msg)
	}
}

// Close closes the engine, sends a final Disconnected to every component still registered and
// closes every candidate queue and state channel. Later calls return the first result.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		a.control.Close()

		a.engineMu.Lock()
		err := a.engine.Close()
		a.engineMu.Unlock()
		if err != nil {
			a.closeErr = fmt.Errorf("close engine: %w", err)
		}

		streams := a.states.closeAll(StateDisconnected)
		a.candidates.closeAll()
		a.metrics.StreamsClosed(streams)
		a.log.Debugf("agent closed, released %d streams", streams)
	})
	return a.closeErr
}

func (a *Agent) onNewCandidate(c candidate.Candidate) {
	if !a.candidates.push(c) {
		a.reportUnknown("candidate for stream %d", c.StreamID)
		return
	}
	a.metrics.CandidateDiscovered()
}

func (a *Agent) onGatheringDone(streamID uint32) {
	if !a.candidates.remove(streamID) {
		a.reportUnknown("gathering done for stream %d", streamID)
	}
}

func (a *Agent) onStateChanged(streamID, componentID uint32, state engine.ComponentState) {
	id := ComponentID{StreamID: streamID, ComponentID: componentID}
	if !a.states.push(id, state) {
		a.reportUnknown("state %s for component %s", state, id)
		return
	}
	a.metrics.StateChanged(state.String())
	a.log.Tracef("component %s state changed to %s", id, state)
}

// reportUnknown logs a callback that targets a key without a registry entry. Late callbacks after
// Close are expected and only traced.
func (a *Agent) reportUnknown(format string, args ...interface{}) {
	if a.closed.Load() {
		a.log.Tracef("agent closed, discarding "+format, args...)
		return
	}
	a.log.Errorf("discarding unregistered "+format, args...)
}
