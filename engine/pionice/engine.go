// Package pionice implements engine.Engine on top of pion/ice.
//
// Every component of a stream is backed by its own ice.Agent. The agents of one stream share the
// stream's local credentials, so a peer sees a single ufrag/pwd pair per stream. pion delivers its
// callbacks on internal goroutines; the engine re-posts them to an eventloop.Loop, which makes the
// registered handlers run one at a time on the loop goroutine.
package pionice

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pion/ice/v4"
	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/stun/v3"
	"github.com/pion/transport/v3/stdnet"
	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/engine"
	nberrors "github.com/netbirdio/iceagent/errors"
	"github.com/netbirdio/iceagent/eventloop"
)

const (
	ufragLength = 16
	pwdLength   = 32
	iceChars    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/"

	maxPacketSize = 65535
)

// Config tunes the pion agents created by the engine. Zero timeouts fall back to the
// ICEAGENT_ICE_* environment variables and then to built-in defaults.
type Config struct {
	Compatibility engine.Compatibility
	// STUNURLs are stun: URIs used to gather server reflexive candidates.
	STUNURLs           []string
	IncludeLoopback    bool
	DisableIPv6        bool
	InterfaceBlackList []string

	KeepAliveInterval   time.Duration
	DisconnectedTimeout time.Duration
	FailedTimeout       time.Duration
}

// DefaultConfig returns an RFC 5245 configuration without STUN servers.
func DefaultConfig() Config {
	return Config{
		Compatibility: engine.CompatibilityRFC5245,
	}
}

// Engine is the pion backed engine.Engine.
type Engine struct {
	loop          *eventloop.Loop
	cfg           Config
	urls          []*stun.URI
	net           *stdnet.Net
	loggerFactory logging.LoggerFactory
	log           *log.Entry

	keepAlive           time.Duration
	disconnectedTimeout time.Duration
	failedTimeout       time.Duration

	mu              sync.Mutex
	streams         map[uint32]*stream
	nextStreamID    uint32
	onCandidate     func(candidate.Candidate)
	onGatheringDone func(uint32)
	onStateChanged  func(uint32, uint32, engine.ComponentState)
	software        string
	controlling     bool
	closed          bool
}

type stream struct {
	id         uint32
	ufrag      string
	pwd        string
	ctx        context.Context
	cancel     context.CancelFunc
	components map[uint32]*component
	gathered   bool
}

type component struct {
	id       uint32
	minPort  uint16
	maxPort  uint16
	agent    *ice.Agent
	mux      *ice.UDPMuxDefault
	conn     *ice.Conn
	recv     engine.RecvFunc
	state    engine.ComponentState
	dialing  bool
	gathered bool
}

func (c *component) hasPortRange() bool {
	return c.minPort != 0 || c.maxPort != 0
}

// New creates an engine whose callbacks run on loop.
func New(loop *eventloop.Loop, cfg Config) (*Engine, error) {
	if cfg.Compatibility != engine.CompatibilityRFC5245 {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedCompatibility, cfg.Compatibility)
	}

	urls := make([]*stun.URI, 0, len(cfg.STUNURLs))
	for _, raw := range cfg.STUNURLs {
		uri, err := stun.ParseURI(raw)
		if err != nil {
			return nil, fmt.Errorf("parse stun url %q: %w", raw, err)
		}
		urls = append(urls, uri)
	}

	transportNet, err := stdnet.NewNet()
	if err != nil {
		return nil, fmt.Errorf("create pion stdnet: %w", err)
	}

	e := &Engine{
		loop:                loop,
		cfg:                 cfg,
		urls:                urls,
		net:                 transportNet,
		log:                 log.WithField("engine", "pion"),
		keepAlive:           cfg.KeepAliveInterval,
		disconnectedTimeout: cfg.DisconnectedTimeout,
		failedTimeout:       cfg.FailedTimeout,
		streams:             make(map[uint32]*stream),
		nextStreamID:        1,
	}
	e.loggerFactory = newLogrusFactory(e.log)

	if e.keepAlive == 0 {
		e.keepAlive = keepAliveInterval()
	}
	if e.disconnectedTimeout == 0 {
		e.disconnectedTimeout = disconnectedTimeout()
	}
	if e.failedTimeout == 0 {
		e.failedTimeout = failedTimeout()
	}
	return e, nil
}

func (e *Engine) OnNewCandidate(f func(c candidate.Candidate)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCandidate = f
	return nil
}

func (e *Engine) OnCandidateGatheringDone(f func(streamID uint32)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onGatheringDone = f
	return nil
}

func (e *Engine) OnComponentStateChanged(f func(streamID, componentID uint32, state engine.ComponentState)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStateChanged = f
	return nil
}

// SetSoftware records the software name. pion does not send a SOFTWARE attribute, so the value
// only appears in logs.
func (e *Engine) SetSoftware(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.software = name
	e.log.Debugf("software set to %q", name)
}

// SetControllingMode applies to connectivity checks started after the call.
func (e *Engine) SetControllingMode(controlling bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controlling = controlling
}

func (e *Engine) AddStream(components uint32) (uint32, error) {
	if components == 0 {
		return 0, engine.ErrInvalidComponentCount
	}

	ufrag, err := randutil.GenerateCryptoRandomString(ufragLength, iceChars)
	if err != nil {
		return 0, fmt.Errorf("generate ufrag: %w", err)
	}
	pwd, err := randutil.GenerateCryptoRandomString(pwdLength, iceChars)
	if err != nil {
		return 0, fmt.Errorf("generate pwd: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, engine.ErrEngineClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		id:         e.nextStreamID,
		ufrag:      ufrag,
		pwd:        pwd,
		ctx:        ctx,
		cancel:     cancel,
		components: make(map[uint32]*component, components),
	}
	for i := uint32(1); i <= components; i++ {
		s.components[i] = &component{id: i}
	}
	e.nextStreamID++
	e.streams[s.id] = s

	e.log.Debugf("added stream %d with %d components", s.id, components)
	return s.id, nil
}

func (e *Engine) LocalCredentials(streamID uint32) (string, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.streams[streamID]
	if !ok {
		return "", "", engine.ErrStreamNotFound
	}
	return s.ufrag, s.pwd, nil
}

// SetPortRange restricts the host candidate of a component to [minPort, maxPort]. It takes effect
// at gathering time.
func (e *Engine) SetPortRange(streamID, componentID uint32, minPort, maxPort uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
		e.log.Debugf("set port range on stream %d component %d: %s", streamID, componentID, err)
		return
	}
	c.minPort = minPort
	c.maxPort = maxPort
}

func (e *Engine) AttachRecv(streamID, componentID uint32, f engine.RecvFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
		return err
	}
	c.recv = f
	return nil
}

func (e *Engine) DetachRecv(streamID, componentID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
		return err
	}
	c.recv = nil
	return nil
}

// GatherCandidates creates the pion agents of the stream and starts gathering on each of them.
// A component whose port range has no free port fails the whole call with
// engine.ErrPortRangeExhausted.
func (e *Engine) GatherCandidates(streamID uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.streams[streamID]
	if !ok {
		return engine.ErrStreamNotFound
	}

	for _, c := range s.sortedComponents() {
		if c.agent != nil {
			continue
		}
		if err := e.createAgentLocked(s, c); err != nil {
			return fmt.Errorf("component %d: %w", c.id, err)
		}
	}

	for _, c := range s.sortedComponents() {
		sid, cid := s.id, c.id
		e.post(func() { e.handleState(sid, cid, engine.ComponentStateGathering) })
		if err := c.agent.GatherCandidates(); err != nil {
			return fmt.Errorf("gather candidates for component %d: %w", c.id, err)
		}
	}
	return nil
}

// SetRemoteCredentials starts connectivity checks on every component of the stream. Components
// dial when the engine is controlling and accept otherwise.
func (e *Engine) SetRemoteCredentials(streamID uint32, ufrag, pwd string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.streams[streamID]
	if !ok {
		return engine.ErrStreamNotFound
	}

	for _, c := range s.sortedComponents() {
		if c.agent == nil {
			return fmt.Errorf("component %d has not gathered candidates", c.id)
		}
		if c.dialing {
			e.log.Debugf("stream %d component %d already started connectivity checks", s.id, c.id)
			continue
		}
		c.dialing = true
		go e.connect(s.ctx, s.id, c.id, c.agent, e.controlling, ufrag, pwd)
	}
	return nil
}

func (e *Engine) AddRemoteCandidates(streamID, componentID uint32, candidates []candidate.Candidate) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
		return 0, err
	}
	if c.agent == nil {
		return 0, fmt.Errorf("component %d has not gathered candidates", componentID)
	}

	added := 0
	for _, rc := range candidates {
		// each pion agent carries a single component
		rc.Component = 1
		ic, err := rc.ToICE()
		if err != nil {
			e.log.Debugf("skipping remote candidate %s: %s", rc, err)
			continue
		}
		if err := c.agent.AddRemoteCandidate(ic); err != nil {
			e.log.Debugf("failed adding remote candidate %s: %s", rc, err)
			continue
		}
		added++
	}
	return added, nil
}

func (e *Engine) Send(streamID, componentID uint32, buf []byte) (int, error) {
	e.mu.Lock()
	c, err := e.componentLocked(streamID, componentID)
	var conn *ice.Conn
	if c != nil {
		conn = c.conn
	}
	e.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if conn == nil {
		return 0, engine.ErrNotConnected
	}
	return conn.Write(buf)
}

func (e *Engine) RemoveStream(streamID uint32) {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	delete(e.streams, streamID)
	e.mu.Unlock()

	if !ok {
		return
	}

	if err := s.close(); err != nil {
		e.log.Debugf("closing stream %d: %s", streamID, err)
	}
	e.log.Debugf("removed stream %d", streamID)
}

// Close removes every stream. Later calls other than Close fail with engine.ErrEngineClosed or
// engine.ErrStreamNotFound.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	streams := make([]*stream, 0, len(e.streams))
	for id, s := range e.streams {
		streams = append(streams, s)
		delete(e.streams, id)
	}
	e.mu.Unlock()

	var merr *multierror.Error
	for _, s := range streams {
		if err := s.close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("stream %d: %w", s.id, err))
		}
	}
	return nberrors.FormatErrorOrNil(merr)
}

func (e *Engine) componentLocked(streamID, componentID uint32) (*component, error) {
	s, ok := e.streams[streamID]
	if !ok {
		return nil, engine.ErrStreamNotFound
	}
	c, ok := s.components[componentID]
	if !ok {
		return nil, engine.ErrComponentNotFound
	}
	return c, nil
}

func (e *Engine) createAgentLocked(s *stream, c *component) error {
	agentConfig := &ice.AgentConfig{
		Urls:                e.urls,
		NetworkTypes:        e.networkTypes(),
		MulticastDNSMode:    ice.MulticastDNSModeDisabled,
		LocalUfrag:          s.ufrag,
		LocalPwd:            s.pwd,
		IncludeLoopback:     e.cfg.IncludeLoopback,
		InterfaceFilter:     interfaceFilter(e.cfg.InterfaceBlackList),
		Net:                 e.net,
		LoggerFactory:       e.loggerFactory,
		KeepaliveInterval:   &e.keepAlive,
		DisconnectedTimeout: &e.disconnectedTimeout,
		FailedTimeout:       &e.failedTimeout,
	}

	if c.hasPortRange() {
		mux, err := e.bindMux(c.minPort, c.maxPort)
		if err != nil {
			return err
		}
		c.mux = mux
		agentConfig.UDPMux = mux
		agentConfig.PortMin = c.minPort
		agentConfig.PortMax = c.maxPort
		agentConfig.NetworkTypes = []ice.NetworkType{ice.NetworkTypeUDP4}
	}

	agent, err := ice.NewAgent(agentConfig)
	if err != nil {
		e.closeMux(c)
		return fmt.Errorf("create ice agent: %w", err)
	}

	sid, cid := s.id, c.id
	err = agent.OnCandidate(func(ic ice.Candidate) {
		e.post(func() { e.handleCandidate(sid, cid, ic) })
	})
	if err != nil {
		e.closeAgent(agent, c)
		return fmt.Errorf("set candidate handler: %w", err)
	}

	err = agent.OnConnectionStateChange(func(state ice.ConnectionState) {
		e.post(func() { e.handleState(sid, cid, componentState(state)) })
	})
	if err != nil {
		e.closeAgent(agent, c)
		return fmt.Errorf("set connection state handler: %w", err)
	}

	c.agent = agent
	return nil
}

func (e *Engine) closeAgent(agent *ice.Agent, c *component) {
	if err := agent.Close(); err != nil {
		e.log.Debugf("close ice agent: %s", err)
	}
	e.closeMux(c)
}

func (e *Engine) closeMux(c *component) {
	if c.mux == nil {
		return
	}
	if err := c.mux.Close(); err != nil {
		e.log.Debugf("close udp mux: %s", err)
	}
	c.mux = nil
}

// bindMux binds the first free UDP port in [minPort, maxPort] and wraps it in a UDP mux pion
// gathers host candidates from.
func (e *Engine) bindMux(minPort, maxPort uint16) (*ice.UDPMuxDefault, error) {
	if maxPort == 0 {
		maxPort = 65535
	}
	if minPort == 0 {
		minPort = 1
	}

	for port := int(minPort); port <= int(maxPort); port++ {
		conn, err := e.net.ListenUDP("udp4", &net.UDPAddr{Port: port})
		if err != nil {
			continue
		}
		return ice.NewUDPMuxDefault(ice.UDPMuxParams{
			Logger:  e.loggerFactory.NewLogger("udpmux"),
			UDPConn: conn,
			Net:     e.net,
		}), nil
	}
	return nil, fmt.Errorf("%w: %d-%d", engine.ErrPortRangeExhausted, minPort, maxPort)
}

func (e *Engine) networkTypes() []ice.NetworkType {
	if e.cfg.DisableIPv6 {
		return []ice.NetworkType{ice.NetworkTypeUDP4}
	}
	return []ice.NetworkType{ice.NetworkTypeUDP4, ice.NetworkTypeUDP6}
}

func (e *Engine) connect(ctx context.Context, streamID, componentID uint32, agent *ice.Agent, controlling bool, ufrag, pwd string) {
	var (
		conn *ice.Conn
		err  error
	)
	if controlling {
		conn, err = agent.Dial(ctx, ufrag, pwd)
	} else {
		conn, err = agent.Accept(ctx, ufrag, pwd)
	}
	if err != nil {
		e.log.Debugf("stream %d component %d connectivity checks ended: %s", streamID, componentID, err)
		return
	}

	e.mu.Lock()
	c, lookupErr := e.componentLocked(streamID, componentID)
	if lookupErr == nil {
		c.conn = conn
	}
	e.mu.Unlock()

	if lookupErr != nil {
		_ = conn.Close()
		return
	}

	e.log.Debugf("stream %d component %d connected %s <-> %s", streamID, componentID, conn.LocalAddr(), conn.RemoteAddr())
	e.readLoop(streamID, componentID, conn)
}

func (e *Engine) readLoop(streamID, componentID uint32, conn *ice.Conn) {
	buf := make([]byte, maxPacketSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			e.log.Tracef("stream %d component %d read loop stopped: %s", streamID, componentID, err)
			return
		}

		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		e.post(func() { e.deliver(streamID, componentID, pkt) })
	}
}

func (e *Engine) post(fn func()) {
	if !e.loop.Invoke(fn) {
		e.log.Tracef("event loop quit, dropping engine callback")
	}
}

func (e *Engine) deliver(streamID, componentID uint32, pkt []byte) {
	e.mu.Lock()
	var recv engine.RecvFunc
	if c, err := e.componentLocked(streamID, componentID); err == nil {
		recv = c.recv
	}
	e.mu.Unlock()

	if recv != nil {
		recv(pkt)
	}
}

func (e *Engine) handleCandidate(streamID, componentID uint32, ic ice.Candidate) {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	if !ok {
		e.mu.Unlock()
		return
	}
	c, ok := s.components[componentID]
	if !ok {
		e.mu.Unlock()
		return
	}

	if ic != nil {
		onCandidate := e.onCandidate
		e.mu.Unlock()

		cand := candidate.FromICE(streamID, ic)
		cand.Component = componentID
		if onCandidate != nil {
			onCandidate(cand)
		}
		return
	}

	c.gathered = true
	done := !s.gathered && s.allGathered()
	if done {
		s.gathered = true
	}
	onGatheringDone := e.onGatheringDone
	e.mu.Unlock()

	if done && onGatheringDone != nil {
		onGatheringDone(streamID)
	}
}

func (e *Engine) handleState(streamID, componentID uint32, state engine.ComponentState) {
	e.mu.Lock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil || !advance(c.state, state) {
		e.mu.Unlock()
		return
	}
	c.state = state
	onStateChanged := e.onStateChanged
	e.mu.Unlock()

	if onStateChanged != nil {
		onStateChanged(streamID, componentID, state)
	}
}

func (s *stream) sortedComponents() []*component {
	out := make([]*component, 0, len(s.components))
	for _, c := range s.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *stream) allGathered() bool {
	for _, c := range s.components {
		if !c.gathered {
			return false
		}
	}
	return true
}

func (s *stream) close() error {
	s.cancel()

	var merr *multierror.Error
	for _, c := range s.sortedComponents() {
		if c.agent != nil {
			if err := c.agent.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("close agent of component %d: %w", c.id, err))
			}
		}
		if c.mux != nil {
			if err := c.mux.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("close mux of component %d: %w", c.id, err))
			}
		}
	}
	return nberrors.FormatErrorOrNil(merr)
}

func interfaceFilter(blackList []string) func(string) bool {
	if len(blackList) == 0 {
		return nil
	}
	deny := make(map[string]struct{}, len(blackList))
	for _, name := range blackList {
		deny[name] = struct{}{}
	}
	return func(name string) bool {
		_, ok := deny[name]
		return !ok
	}
}
