package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/internal/mpsc"
)

// Stream is a group of components negotiated with one set of credentials.
type Stream struct {
	id             uint32
	agent          *Agent
	ufrag          string
	pwd            string
	componentCount uint32
	candidates     *mpsc.Queue[candidate.Candidate]

	mu         sync.Mutex
	components []*StreamComponent

	closeOnce sync.Once
}

func (s *Stream) ID() uint32 {
	return s.id
}

func (s *Stream) LocalUfrag() string {
	return s.ufrag
}

func (s *Stream) LocalPwd() string {
	return s.pwd
}

// SetRemoteCredentials queues the peer's credentials for the stream. It panics if either value
// contains a NUL byte.
func (s *Stream) SetRemoteCredentials(ufrag, pwd string) {
	if strings.IndexByte(ufrag, 0) >= 0 || strings.IndexByte(pwd, 0) >= 0 {
		panic("agent: remote credentials contain a NUL byte")
	}
	s.agent.enqueue(setRemoteCredentialsMsg{streamID: s.id, ufrag: ufrag, pwd: pwd})
}

// AddRemoteCandidate queues a candidate of the peer for the component c.Component. It panics
// unless 1 <= c.Component <= the stream's component count. Candidates the engine cannot use are
// dropped silently.
func (s *Stream) AddRemoteCandidate(c candidate.Candidate) {
	if c.Component == 0 || c.Component > s.componentCount {
		panic(fmt.Sprintf("agent: candidate component %d out of range [1, %d]", c.Component, s.componentCount))
	}
	s.agent.enqueue(addRemoteCandidateMsg{
		id:        ComponentID{StreamID: s.id, ComponentID: c.Component},
		candidate: c,
	})
}

// NextCandidate blocks until the engine reports the next local candidate. It returns io.EOF once
// gathering is done and every candidate has been read.
func (s *Stream) NextCandidate(ctx context.Context) (candidate.Candidate, error) {
	c, err := s.candidates.Pop(ctx)
	if errors.Is(err, mpsc.ErrClosed) {
		return candidate.Candidate{}, io.EOF
	}
	return c, err
}

// Candidates collects local candidates until gathering is done.
func (s *Stream) Candidates(ctx context.Context) ([]candidate.Candidate, error) {
	var out []candidate.Candidate
	for {
		c, err := s.NextCandidate(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}

// Components returns the components still owned by the stream, ordered by component id.
func (s *Stream) Components() []*StreamComponent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*StreamComponent(nil), s.components...)
}

// TakeComponents hands the components over to the caller. Later calls return nothing.
func (s *Stream) TakeComponents() []*StreamComponent {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := s.components
	s.components = nil
	return taken
}

// Close queues the removal of the stream. The drive loop detaches the components, removes the
// engine stream and closes every channel of the stream. Close never blocks and may be called more
// than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.agent.enqueue(dropStreamMsg{streamID: s.id, components: s.componentCount})
	})
}
