package agent

import (
	"fmt"

	"github.com/netbirdio/iceagent/engine"
)

// ComponentState is the connectivity state of a component as reported by the engine.
type ComponentState = engine.ComponentState

const (
	StateDisconnected = engine.ComponentStateDisconnected
	StateGathering    = engine.ComponentStateGathering
	StateConnecting   = engine.ComponentStateConnecting
	StateConnected    = engine.ComponentStateConnected
	StateReady        = engine.ComponentStateReady
	StateFailed       = engine.ComponentStateFailed
)

// ComponentID identifies one component of one stream. Ids are unique while the stream is alive and
// may be handed out again once it has been removed.
type ComponentID struct {
	StreamID    uint32
	ComponentID uint32
}

func (id ComponentID) String() string {
	return fmt.Sprintf("%d/%d", id.StreamID, id.ComponentID)
}
