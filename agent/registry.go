package agent

import (
	"sync"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/internal/mpsc"
)

const stateBufferSize = 8

// candidateRegistry maps a stream id to the queue its local candidates are pushed into.
type candidateRegistry struct {
	mu     sync.Mutex
	queues map[uint32]*mpsc.Queue[candidate.Candidate]
}

func newCandidateRegistry() *candidateRegistry {
	return &candidateRegistry{
		queues: make(map[uint32]*mpsc.Queue[candidate.Candidate]),
	}
}

func (r *candidateRegistry) register(streamID uint32) *mpsc.Queue[candidate.Candidate] {
	q := mpsc.New[candidate.Candidate]()

	r.mu.Lock()
	defer r.mu.Unlock()
	if stale, ok := r.queues[streamID]; ok {
		stale.Close()
	}
	r.queues[streamID] = q
	return q
}

// push reports false when no queue is registered for the stream.
func (r *candidateRegistry) push(c candidate.Candidate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[c.StreamID]
	if !ok {
		return false
	}
	q.Push(c)
	return true
}

// remove closes and unregisters the queue of a stream. It reports whether one was registered.
func (r *candidateRegistry) remove(streamID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[streamID]
	if !ok {
		return false
	}
	delete(r.queues, streamID)
	q.Close()
	return true
}

func (r *candidateRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range r.queues {
		q.Close()
		delete(r.queues, id)
	}
}

// stateRegistry maps a component to the bounded channel its state transitions are pushed into.
// Channels are only sent on and closed under mu.
type stateRegistry struct {
	mu    sync.Mutex
	chans map[ComponentID]chan ComponentState
}

func newStateRegistry() *stateRegistry {
	return &stateRegistry{
		chans: make(map[ComponentID]chan ComponentState),
	}
}

func (r *stateRegistry) register(id ComponentID) <-chan ComponentState {
	ch := make(chan ComponentState, stateBufferSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	if stale, ok := r.chans[id]; ok {
		close(stale)
	}
	r.chans[id] = ch
	return ch
}

// push delivers state without blocking. When the consumer is behind and the buffer is full the
// oldest pending state is discarded, so the latest one always gets through. It reports false when
// the component is not registered.
func (r *stateRegistry) push(id ComponentID, state ComponentState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chans[id]
	if !ok {
		return false
	}
	offer(ch, state)
	return true
}

// removeStream closes and unregisters every component of a stream. It returns how many were
// registered.
func (r *stateRegistry) removeStream(streamID uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, ch := range r.chans {
		if id.StreamID != streamID {
			continue
		}
		close(ch)
		delete(r.chans, id)
		removed++
	}
	return removed
}

// closeAll pushes final to every registered channel, closes them all and returns the number of
// distinct streams they belonged to.
func (r *stateRegistry) closeAll(final ComponentState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	streams := make(map[uint32]struct{})
	for id, ch := range r.chans {
		offer(ch, final)
		close(ch)
		delete(r.chans, id)
		streams[id.StreamID] = struct{}{}
	}
	return len(streams)
}

func offer(ch chan ComponentState, state ComponentState) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
