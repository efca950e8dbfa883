package agent

import (
	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/metrics"
)

// controlMsg is a request applied to the engine by the drive loop.
type controlMsg interface {
	kind() string
}

type setRemoteCredentialsMsg struct {
	streamID uint32
	ufrag    string
	pwd      string
}

type addRemoteCandidateMsg struct {
	id        ComponentID
	candidate candidate.Candidate
}

type sendMsg struct {
	id      ComponentID
	payload []byte
}

type dropStreamMsg struct {
	streamID   uint32
	components uint32
}

func (setRemoteCredentialsMsg) kind() string { return "set_remote_credentials" }
func (addRemoteCandidateMsg) kind() string   { return "add_remote_candidate" }
func (sendMsg) kind() string                 { return "send" }
func (dropStreamMsg) kind() string           { return "drop_stream" }

// enqueue hands msg to the drive loop. Messages sent after Close are dropped.
func (a *Agent) enqueue(msg controlMsg) {
	if !a.control.Push(msg) {
		a.log.Tracef("agent closed, dropping %s message", msg.kind())
	}
}

// handleMsg applies one control message. Failures are logged and swallowed: the stream may
// already be gone and nobody waits for an answer.
func (a *Agent) handleMsg(msg controlMsg) {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	a.metrics.ControlMessage(msg.kind())

	switch m := msg.(type) {
	case setRemoteCredentialsMsg:
		if err := a.engine.SetRemoteCredentials(m.streamID, m.ufrag, m.pwd); err != nil {
			a.log.Debugf("failed setting remote credentials of stream %d: %s", m.streamID, err)
		}
	case addRemoteCandidateMsg:
		if err := m.candidate.Validate(); err != nil {
			a.log.Debugf("ignoring remote candidate %s for %s: %s", m.candidate, m.id, err)
			return
		}
		if _, err := a.engine.AddRemoteCandidates(m.id.StreamID, m.id.ComponentID, []candidate.Candidate{m.candidate}); err != nil {
			a.log.Debugf("failed adding remote candidate %s for %s: %s", m.candidate, m.id, err)
		}
	case sendMsg:
		if _, err := a.engine.Send(m.id.StreamID, m.id.ComponentID, m.payload); err != nil {
			a.metrics.PacketDropped(metrics.DirectionOutbound)
			a.log.Tracef("dropped %d bytes for %s: %s", len(m.payload), m.id, err)
		}
	case dropStreamMsg:
		if removed := a.removeStreamLocked(m.streamID, m.components); removed {
			a.metrics.StreamsClosed(1)
		}
	default:
		a.log.Errorf("unknown control message %T", msg)
	}
}

// removeStreamLocked detaches every receive hook, removes the engine stream and erases the stream
// from both registries. Repeated calls are harmless. It reports whether the stream still had
// registered components.
func (a *Agent) removeStreamLocked(streamID, components uint32) bool {
	for cid := uint32(1); cid <= components; cid++ {
		if err := a.engine.DetachRecv(streamID, cid); err != nil {
			a.log.Tracef("detach receive hook of %s: %s", ComponentID{streamID, cid}, err)
		}
	}
	a.engine.RemoveStream(streamID)

	a.candidates.remove(streamID)
	removed := a.states.removeStream(streamID) > 0
	if removed {
		a.log.Debugf("removed stream %d", streamID)
	}
	return removed
}
