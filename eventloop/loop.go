// Package eventloop provides the single-threaded runtime the ICE engine runs its callbacks on.
//
// All work handed to a Loop with Invoke is executed one task at a time, in submission order, on the
// goroutine that called Run. Engine callbacks are therefore never concurrent with each other.
package eventloop

import (
	"context"
	"errors"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/iceagent/internal/mpsc"
)

// ErrLoopQuit is returned by Run after Quit has been called.
var ErrLoopQuit = errors.New("event loop quit")

// ErrAlreadyRunning is returned by Run when another goroutine is already running the loop.
var ErrAlreadyRunning = errors.New("event loop already running")

// Loop is a run-until-woken task executor.
type Loop struct {
	tasks   *mpsc.Queue[func()]
	running atomic.Bool
}

// New returns a Loop that is not running yet. Tasks invoked before Run are kept until it starts.
func New() *Loop {
	return &Loop{
		tasks: mpsc.New[func()](),
	}
}

// Invoke schedules fn to run on the loop goroutine. It never blocks and returns false when the loop
// has quit, in which case fn is dropped.
func (l *Loop) Invoke(fn func()) bool {
	return l.tasks.Push(fn)
}

// Run executes queued tasks on the calling goroutine until ctx is done or Quit is called. Tasks that
// are still queued when Quit is called are discarded.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	for {
		task, err := l.tasks.Pop(ctx)
		if err != nil {
			if errors.Is(err, mpsc.ErrClosed) {
				return ErrLoopQuit
			}
			return err
		}

		if l.tasks.Closed() {
			log.Tracef("event loop quit, dropping %d queued tasks", l.tasks.Len()+1)
			return ErrLoopQuit
		}
		task()
	}
}

// Quit stops the loop. Subsequent Invoke calls are rejected.
func (l *Loop) Quit() {
	l.tasks.Close()
}
