package pionice

import (
	"github.com/pion/ice/v4"

	"github.com/netbirdio/iceagent/engine"
)

// componentState maps a pion connection state onto the component lattice. pion reports a dropped
// or closed pair as Disconnected, which the engine filters out once a component has progressed.
func componentState(s ice.ConnectionState) engine.ComponentState {
	switch s {
	case ice.ConnectionStateChecking:
		return engine.ComponentStateConnecting
	case ice.ConnectionStateConnected:
		return engine.ComponentStateConnected
	case ice.ConnectionStateCompleted:
		return engine.ComponentStateReady
	case ice.ConnectionStateFailed:
		return engine.ComponentStateFailed
	default:
		return engine.ComponentStateDisconnected
	}
}

// advance reports whether next should be published after current.
func advance(current, next engine.ComponentState) bool {
	if current == engine.ComponentStateFailed {
		return false
	}
	return next == engine.ComponentStateFailed || next.Rank() > current.Rank()
}
