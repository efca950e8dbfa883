// Package engine defines the contract between the agent bridge and the ICE engine that does the
// protocol work.
//
// An Engine is not safe for concurrent use: the agent serializes every call. Callbacks registered
// with OnNewCandidate, OnCandidateGatheringDone and OnComponentStateChanged are invoked on the
// engine's event loop goroutine, possibly synchronously from within GatherCandidates, and must not
// call back into the Engine.
package engine

//go:generate go run github.com/golang/mock/mockgen -package engine -destination=mock_engine.go -source=./engine.go -build_flags=-mod=mod

import (
	"errors"

	"github.com/netbirdio/iceagent/candidate"
)

var (
	ErrStreamNotFound           = errors.New("stream not found")
	ErrComponentNotFound        = errors.New("component not found")
	ErrInvalidComponentCount    = errors.New("stream needs at least one component")
	ErrPortRangeExhausted       = errors.New("port range exhausted")
	ErrUnsupportedCompatibility = errors.New("unsupported compatibility mode")
	ErrNotConnected             = errors.New("component is not connected")
	ErrEngineClosed             = errors.New("engine closed")
)

// RecvFunc receives one inbound packet. The engine hands over ownership of buf.
type RecvFunc func(buf []byte)

// Engine is the ICE implementation the agent drives.
type Engine interface {
	// OnNewCandidate registers the handler for locally discovered candidates.
	OnNewCandidate(f func(c candidate.Candidate)) error
	// OnCandidateGatheringDone registers the handler fired once per stream when gathering finished.
	OnCandidateGatheringDone(f func(streamID uint32)) error
	// OnComponentStateChanged registers the handler for component state transitions.
	OnComponentStateChanged(f func(streamID, componentID uint32, state ComponentState)) error

	SetSoftware(name string)
	SetControllingMode(controlling bool)

	// AddStream allocates a stream with components numbered 1..components and returns its id.
	AddStream(components uint32) (uint32, error)
	LocalCredentials(streamID uint32) (ufrag, pwd string, err error)
	SetPortRange(streamID, componentID uint32, minPort, maxPort uint16)
	AttachRecv(streamID, componentID uint32, f RecvFunc) error
	DetachRecv(streamID, componentID uint32) error
	GatherCandidates(streamID uint32) error
	SetRemoteCredentials(streamID uint32, ufrag, pwd string) error
	// AddRemoteCandidates returns how many of the candidates were accepted.
	AddRemoteCandidates(streamID, componentID uint32, candidates []candidate.Candidate) (int, error)
	Send(streamID, componentID uint32, buf []byte) (int, error)
	RemoveStream(streamID uint32)

	Close() error
}
