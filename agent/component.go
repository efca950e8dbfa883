package agent

import (
	"context"
	"io"
	"sync"

	"github.com/netbirdio/iceagent/candidate"
)

// StreamComponent is one transport of a stream. It implements io.Reader and io.Writer on a
// datagram basis: every Read returns at most one packet and every Write sends one.
type StreamComponent struct {
	id      ComponentID
	agent   *Agent
	inbound <-chan []byte
	states  <-chan ComponentState

	mu     sync.Mutex
	state  ComponentState
	closed bool
	// changed is closed and replaced every time an update is applied, waking every waiter no
	// matter which goroutine took the update off states.
	changed chan struct{}
}

func newStreamComponent(a *Agent, id ComponentID, inbound <-chan []byte, states <-chan ComponentState) *StreamComponent {
	return &StreamComponent{
		id:      id,
		agent:   a,
		inbound: inbound,
		states:  states,
		state:   StateDisconnected,
		changed: make(chan struct{}),
	}
}

func (c *StreamComponent) ID() ComponentID {
	return c.id
}

// AddRemoteCandidate queues a peer candidate for this component. The candidate's component field
// is set to this component's id.
func (c *StreamComponent) AddRemoteCandidate(rc candidate.Candidate) {
	rc.Component = c.id.ComponentID
	c.agent.enqueue(addRemoteCandidateMsg{id: c.id, candidate: rc})
}

// Send queues payload for transmission. Ownership of payload passes to the agent. Delivery is best
// effort: failures are not reported.
func (c *StreamComponent) Send(payload []byte) {
	c.agent.enqueue(sendMsg{id: c.id, payload: payload})
}

// State returns the state seen by the last PollState, Recv or future poll. It does not consume
// pending updates.
func (c *StreamComponent) State() ComponentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PollState applies every pending state update and reports whether the component has been torn
// down.
func (c *StreamComponent) PollState() (closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainLocked()
}

func (c *StreamComponent) drainLocked() bool {
	for !c.closed {
		select {
		case s, ok := <-c.states:
			c.applyLocked(s, ok)
		default:
			return false
		}
	}
	return true
}

func (c *StreamComponent) applyLocked(s ComponentState, ok bool) {
	if ok {
		c.state = s
	} else {
		c.closed = true
	}
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *StreamComponent) apply(s ComponentState, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.applyLocked(s, ok)
}

// watchLocked returns the channels a waiter selects on: the state channel, or nil once the
// component is closed, and the notifier for updates applied by other goroutines.
func (c *StreamComponent) watchLocked() (<-chan ComponentState, <-chan struct{}) {
	if c.closed {
		return nil, c.changed
	}
	return c.states, c.changed
}

// wait blocks until an update is applied, by this goroutine or another one, or ctx is done.
func (c *StreamComponent) wait(ctx context.Context, states <-chan ComponentState, changed <-chan struct{}) error {
	select {
	case s, ok := <-states:
		c.apply(s, ok)
	case <-changed:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// WaitForState returns a future that resolves once the component reaches target.
func (c *StreamComponent) WaitForState(target ComponentState) *ComponentStateFuture {
	return &ComponentStateFuture{component: c, target: target}
}

// Recv blocks until a packet arrives. Once the component has been torn down it returns the packets
// still buffered and then io.EOF.
func (c *StreamComponent) Recv(ctx context.Context) ([]byte, error) {
	for {
		select {
		case pkt := <-c.inbound:
			return pkt, nil
		default:
		}

		c.mu.Lock()
		states, changed := c.watchLocked()
		c.mu.Unlock()
		if states == nil {
			return nil, io.EOF
		}

		select {
		case pkt := <-c.inbound:
			return pkt, nil
		case s, ok := <-states:
			c.apply(s, ok)
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Read copies the next packet into p. A packet larger than p is truncated.
func (c *StreamComponent) Read(p []byte) (int, error) {
	pkt, err := c.Recv(context.Background())
	if err != nil {
		return 0, err
	}
	return copy(p, pkt), nil
}

// Write sends a copy of p and always reports len(p).
func (c *StreamComponent) Write(p []byte) (int, error) {
	payload := make([]byte, len(p))
	copy(payload, p)
	c.Send(payload)
	return len(p), nil
}

var (
	_ io.Reader = (*StreamComponent)(nil)
	_ io.Writer = (*StreamComponent)(nil)
)
