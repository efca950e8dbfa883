package agent

import (
	"fmt"

	"github.com/netbirdio/iceagent/engine"
	"github.com/netbirdio/iceagent/metrics"
)

const defaultInboundBufferSize = 10

type portRange struct {
	min uint16
	max uint16
	set bool
}

// StreamBuilder configures a stream before it is allocated on the engine.
type StreamBuilder struct {
	agent       *Agent
	components  int
	inboundSize int
	portRanges  []portRange
}

func newStreamBuilder(a *Agent, components int) *StreamBuilder {
	b := &StreamBuilder{
		agent:       a,
		components:  components,
		inboundSize: defaultInboundBufferSize,
	}
	if components > 0 {
		b.portRanges = make([]portRange, components)
	}
	return b
}

// SetInboundBufferSize sets how many received packets each component buffers, at least one.
// Packets arriving while the buffer is full are dropped.
func (b *StreamBuilder) SetInboundBufferSize(n int) *StreamBuilder {
	if n < 1 {
		n = 1
	}
	b.inboundSize = n
	return b
}

// SetPortRange restricts the local port of every component to [minPort, maxPort].
func (b *StreamBuilder) SetPortRange(minPort, maxPort uint16) *StreamBuilder {
	for i := range b.portRanges {
		b.portRanges[i] = portRange{min: minPort, max: maxPort, set: true}
	}
	return b
}

// SetComponentPortRange restricts the local port of the component at the zero based index. It
// panics if index is not below the component count.
func (b *StreamBuilder) SetComponentPortRange(index int, minPort, maxPort uint16) *StreamBuilder {
	if index < 0 || index >= b.components {
		panic(fmt.Sprintf("agent: component index %d out of range [0, %d)", index, b.components))
	}
	b.portRanges[index] = portRange{min: minPort, max: maxPort, set: true}
	return b
}

// Build allocates the stream, wires its channels and starts candidate gathering. When any step
// after the allocation fails, the stream is removed again before the error is returned.
func (b *StreamBuilder) Build() (*Stream, error) {
	a := b.agent
	if a.closed.Load() {
		return nil, ErrAgentClosed
	}
	if b.components <= 0 {
		return nil, engine.ErrInvalidComponentCount
	}
	count := uint32(b.components)

	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	streamID, err := a.engine.AddStream(count)
	if err != nil {
		return nil, fmt.Errorf("add stream: %w", err)
	}

	s, err := b.configureLocked(streamID, count)
	if err != nil {
		a.removeStreamLocked(streamID, count)
		return nil, fmt.Errorf("configure stream %d: %w", streamID, err)
	}

	a.metrics.StreamsOpened(1)
	a.log.Debugf("built stream %d with %d components", streamID, count)
	return s, nil
}

func (b *StreamBuilder) configureLocked(streamID, count uint32) (*Stream, error) {
	a := b.agent

	ufrag, pwd, err := a.engine.LocalCredentials(streamID)
	if err != nil {
		return nil, fmt.Errorf("get local credentials: %w", err)
	}

	components := make([]*StreamComponent, 0, count)
	for cid := uint32(1); cid <= count; cid++ {
		id := ComponentID{StreamID: streamID, ComponentID: cid}
		inbound := make(chan []byte, b.inboundSize)

		err := a.engine.AttachRecv(streamID, cid, func(buf []byte) {
			select {
			case inbound <- buf:
			default:
				a.metrics.PacketDropped(metrics.DirectionInbound)
				a.log.Tracef("inbound buffer of %s full, dropping %d bytes", id, len(buf))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("attach receive hook of component %d: %w", cid, err)
		}

		states := a.states.register(id)
		components = append(components, newStreamComponent(a, id, inbound, states))
	}

	for i, r := range b.portRanges {
		if r.set {
			a.engine.SetPortRange(streamID, uint32(i+1), r.min, r.max)
		}
	}

	candidates := a.candidates.register(streamID)

	if err := a.engine.GatherCandidates(streamID); err != nil {
		return nil, fmt.Errorf("gather candidates: %w", err)
	}

	return &Stream{
		id:             streamID,
		agent:          a,
		ufrag:          ufrag,
		pwd:            pwd,
		componentCount: count,
		candidates:     candidates,
		components:     components,
	}, nil
}
