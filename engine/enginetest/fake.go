// Package enginetest provides an in-memory engine.Engine for tests.
//
// Engines created from the same Network can reach each other: once a stream knows the remote
// credentials of a peer stream and at least one remote candidate that points at one of the peer's
// components, the component walks Connecting, Connected and Ready, and Send delivers a copy of the
// payload to the peer's receive hook.
package enginetest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/engine"
	"github.com/netbirdio/iceagent/eventloop"
)

// DefaultFirstPort is the first port handed out to components without a port range.
const DefaultFirstPort = 50000

type endpoint struct {
	engine    *Engine
	stream    uint32
	component uint32
	ufrag     string
}

// Network is the shared address space of linked fake engines.
type Network struct {
	mu        sync.Mutex
	ports     map[int]endpoint
	engines   int
	firstPort int
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{
		ports:     make(map[int]endpoint),
		firstPort: DefaultFirstPort,
	}
}

// Reserve marks ports as taken by something outside the network.
func (n *Network) Reserve(ports ...int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range ports {
		n.ports[p] = endpoint{}
	}
}

func (n *Network) allocate(ep endpoint, minPort, maxPort uint16) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	lo, hi := n.firstPort, 65535
	if minPort != 0 || maxPort != 0 {
		lo, hi = int(minPort), int(maxPort)
		if lo == 0 {
			lo = 1
		}
		if hi == 0 {
			hi = 65535
		}
	}

	for p := lo; p <= hi; p++ {
		if _, taken := n.ports[p]; taken {
			continue
		}
		n.ports[p] = ep
		return p, nil
	}
	return 0, fmt.Errorf("%w: %d-%d", engine.ErrPortRangeExhausted, lo, hi)
}

func (n *Network) release(ports ...int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range ports {
		delete(n.ports, p)
	}
}

func (n *Network) lookup(port int) (endpoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep, ok := n.ports[port]
	return ep, ok && ep.engine != nil
}

// NewEngine returns an engine attached to the network. Callbacks are posted to loop, or run
// synchronously on the calling goroutine when loop is nil.
func (n *Network) NewEngine(loop *eventloop.Loop) *Engine {
	n.mu.Lock()
	n.engines++
	index := n.engines
	n.mu.Unlock()

	return &Engine{
		network: n,
		loop:    loop,
		index:   index,
		streams: make(map[uint32]*stream),
		nextID:  1,
	}
}

// Engine is a fake engine.Engine.
type Engine struct {
	network *Network
	loop    *eventloop.Loop
	index   int

	mu              sync.Mutex
	streams         map[uint32]*stream
	nextID          uint32
	removed         []uint32
	onCandidate     func(candidate.Candidate)
	onGatheringDone func(uint32)
	onStateChanged  func(uint32, uint32, engine.ComponentState)
	software        string
	controlling     bool
	closed          bool
}

type stream struct {
	id          uint32
	ufrag       string
	pwd         string
	remoteUfrag string
	remotePwd   string
	components  map[uint32]*component
}

type component struct {
	id      uint32
	minPort uint16
	maxPort uint16
	port    int
	recv    engine.RecvFunc
	remote  []candidate.Candidate
	peer    *endpoint
}

var _ engine.Engine = (*Engine)(nil)

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

func (e *Engine) SetSoftware(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.software = name
}

// Software returns the last value passed to SetSoftware.
func (e *Engine) Software() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.software
}

func (e *Engine) SetControllingMode(controlling bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controlling = controlling
}

// Controlling returns the last value passed to SetControllingMode.
func (e *Engine) Controlling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlling
}

func (e *Engine) AddStream(components uint32) (uint32, error) {
	if components == 0 {
		return 0, engine.ErrInvalidComponentCount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, engine.ErrEngineClosed
	}

	s := &stream{
		id:         e.nextID,
		ufrag:      fmt.Sprintf("ufrag%d-%d", e.index, e.nextID),
		pwd:        fmt.Sprintf("password-of-engine%d-stream%d", e.index, e.nextID),
		components: make(map[uint32]*component, components),
	}
	for i := uint32(1); i <= components; i++ {
		s.components[i] = &component{id: i}
	}
	e.streams[s.id] = s
	e.nextID++
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

func (e *Engine) SetPortRange(streamID, componentID uint32, minPort, maxPort uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
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

// GatherCandidates allocates one port per component and reports a single 127.0.0.1 host
// candidate for each, followed by gathering done.
func (e *Engine) GatherCandidates(streamID uint32) error {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	if !ok {
		e.mu.Unlock()
		return engine.ErrStreamNotFound
	}

	var events []func()
	for _, c := range s.sorted() {
		if c.port == 0 {
			port, err := e.network.allocate(endpoint{engine: e, stream: s.id, component: c.id, ufrag: s.ufrag}, c.minPort, c.maxPort)
			if err != nil {
				e.mu.Unlock()
				return fmt.Errorf("component %d: %w", c.id, err)
			}
			c.port = port
		}

		events = append(events, e.stateEventLocked(s.id, c.id, engine.ComponentStateGathering))
		cand := candidate.Candidate{
			StreamID:   s.id,
			Foundation: fmt.Sprintf("%d", c.id),
			Component:  c.id,
			Transport:  "udp",
			Priority:   2130706431 - c.id,
			Address:    "127.0.0.1",
			Port:       c.port,
			Type:       candidate.TypeHost,
		}
		if f := e.onCandidate; f != nil {
			events = append(events, func() { f(cand) })
		}
	}
	if f := e.onGatheringDone; f != nil {
		events = append(events, func() { f(streamID) })
	}
	e.mu.Unlock()

	e.dispatch(events...)
	return nil
}

func (e *Engine) SetRemoteCredentials(streamID uint32, ufrag, pwd string) error {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	if !ok {
		e.mu.Unlock()
		return engine.ErrStreamNotFound
	}
	s.remoteUfrag = ufrag
	s.remotePwd = pwd

	var events []func()
	for _, c := range s.sorted() {
		events = append(events, e.tryConnectLocked(s, c)...)
	}
	e.mu.Unlock()

	e.dispatch(events...)
	return nil
}

func (e *Engine) AddRemoteCandidates(streamID, componentID uint32, candidates []candidate.Candidate) (int, error) {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	if !ok {
		e.mu.Unlock()
		return 0, engine.ErrStreamNotFound
	}
	c, ok := s.components[componentID]
	if !ok {
		e.mu.Unlock()
		return 0, engine.ErrComponentNotFound
	}

	added := 0
	for _, rc := range candidates {
		if rc.Validate() != nil {
			continue
		}
		c.remote = append(c.remote, rc)
		added++
	}
	events := e.tryConnectLocked(s, c)
	e.mu.Unlock()

	e.dispatch(events...)
	return added, nil
}

// Send hands a copy of buf to the connected peer component. Packets for a peer that went away are
// dropped silently.
func (e *Engine) Send(streamID, componentID uint32, buf []byte) (int, error) {
	e.mu.Lock()
	c, err := e.componentLocked(streamID, componentID)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	peer := c.peer
	e.mu.Unlock()

	if peer == nil {
		return 0, engine.ErrNotConnected
	}

	pkt := make([]byte, len(buf))
	copy(pkt, buf)
	peer.engine.deliver(peer.stream, peer.component, pkt)
	return len(buf), nil
}

func (e *Engine) RemoveStream(streamID uint32) {
	e.mu.Lock()
	s, ok := e.streams[streamID]
	if ok {
		delete(e.streams, streamID)
		e.removed = append(e.removed, streamID)
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	var ports []int
	for _, c := range s.components {
		if c.port != 0 {
			ports = append(ports, c.port)
		}
	}
	e.network.release(ports...)
}

func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	ids := make([]uint32, 0, len(e.streams))
	for id := range e.streams {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.RemoveStream(id)
	}
	return nil
}

// Removed lists the ids passed to RemoveStream for streams that existed, in call order.
func (e *Engine) Removed() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint32(nil), e.removed...)
}

// LiveStreams lists the ids of streams that have not been removed, sorted.
func (e *Engine) LiveStreams() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint32, 0, len(e.streams))
	for id := range e.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EmitState fires the component state callback as if the engine had observed the transition. Use
// it to drive states the loopback never reaches, such as Failed.
func (e *Engine) EmitState(streamID, componentID uint32, state engine.ComponentState) {
	e.mu.Lock()
	ev := e.stateEventLocked(streamID, componentID, state)
	e.mu.Unlock()
	e.dispatch(ev)
}

// Deliver feeds an inbound packet to the receive hook of a component, as if it came off the wire.
func (e *Engine) Deliver(streamID, componentID uint32, pkt []byte) {
	e.deliver(streamID, componentID, pkt)
}

func (e *Engine) deliver(streamID, componentID uint32, pkt []byte) {
	e.dispatch(func() {
		e.mu.Lock()
		var recv engine.RecvFunc
		if c, err := e.componentLocked(streamID, componentID); err == nil {
			recv = c.recv
		}
		e.mu.Unlock()

		if recv != nil {
			recv(pkt)
		}
	})
}

func (e *Engine) tryConnectLocked(s *stream, c *component) []func() {
	if c.peer != nil || s.remoteUfrag == "" {
		return nil
	}

	for _, rc := range c.remote {
		ep, ok := e.network.lookup(rc.Port)
		if !ok || ep.ufrag != s.remoteUfrag || ep.component != c.id {
			continue
		}
		c.peer = &ep
		return []func(){
			e.stateEventLocked(s.id, c.id, engine.ComponentStateConnecting),
			e.stateEventLocked(s.id, c.id, engine.ComponentStateConnected),
			e.stateEventLocked(s.id, c.id, engine.ComponentStateReady),
		}
	}
	return nil
}

func (e *Engine) stateEventLocked(streamID, componentID uint32, state engine.ComponentState) func() {
	f := e.onStateChanged
	return func() {
		if f != nil {
			f(streamID, componentID, state)
		}
	}
}

func (e *Engine) dispatch(events ...func()) {
	for _, ev := range events {
		if e.loop == nil {
			ev()
			continue
		}
		e.loop.Invoke(ev)
	}
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

func (s *stream) sorted() []*component {
	out := make([]*component, 0, len(s.components))
	for _, c := range s.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
