package engine

import (
	log "github.com/sirupsen/logrus"
)

const (
	ComponentStateDisconnected ComponentState = iota
	ComponentStateGathering
	ComponentStateConnecting
	ComponentStateConnected
	ComponentStateReady
	// ComponentStateFailed is terminal. It ranks above every other state but never counts as progress.
	ComponentStateFailed
)

// ComponentState is the connectivity state of one ICE component.
type ComponentState int32

func (s ComponentState) String() string {
	switch s {
	case ComponentStateDisconnected:
		return "Disconnected"
	case ComponentStateGathering:
		return "Gathering"
	case ComponentStateConnecting:
		return "Connecting"
	case ComponentStateConnected:
		return "Connected"
	case ComponentStateReady:
		return "Ready"
	case ComponentStateFailed:
		return "Failed"
	default:
		log.Errorf("unknown component state: %d", s)
		return "INVALID_COMPONENT_STATE"
	}
}

// Rank orders states for comparison only. Use Reached to decide whether a state satisfies a target.
func (s ComponentState) Rank() int {
	switch s {
	case ComponentStateDisconnected:
		return 0
	case ComponentStateGathering:
		return 1
	case ComponentStateConnecting:
		return 2
	case ComponentStateConnected:
		return 3
	case ComponentStateReady:
		return 4
	default:
		return 5
	}
}

// Reached reports whether s is at or past target. Failed never reaches anything.
func (s ComponentState) Reached(target ComponentState) bool {
	if s == ComponentStateFailed {
		return false
	}
	return s.Rank() >= target.Rank()
}

// Compatibility selects the ICE dialect an engine speaks.
type Compatibility int

const (
	CompatibilityRFC5245 Compatibility = iota
	CompatibilityGoogle
	CompatibilityMSN
	CompatibilityWLM2009
	CompatibilityOC2007
	CompatibilityOC2007R2
)

func (c Compatibility) String() string {
	switch c {
	case CompatibilityRFC5245:
		return "rfc5245"
	case CompatibilityGoogle:
		return "google"
	case CompatibilityMSN:
		return "msn"
	case CompatibilityWLM2009:
		return "wlm2009"
	case CompatibilityOC2007:
		return "oc2007"
	case CompatibilityOC2007R2:
		return "oc2007r2"
	default:
		return "unknown"
	}
}

// ParseCompatibility maps the names returned by Compatibility.String back to their value.
func ParseCompatibility(name string) (Compatibility, error) {
	for c := CompatibilityRFC5245; c <= CompatibilityOC2007R2; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, ErrUnsupportedCompatibility
}
