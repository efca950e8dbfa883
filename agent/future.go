package agent

import (
	"context"
	"errors"
)

var (
	// ErrComponentClosed means the component was torn down before reaching the awaited state.
	ErrComponentClosed = errors.New("component closed")
	// ErrComponentFailed means the component failed. Failed never satisfies a wait.
	ErrComponentFailed = errors.New("component failed")
)

// ComponentStateFuture waits for a component to reach a target state.
type ComponentStateFuture struct {
	component *StreamComponent
	target    ComponentState
}

// Poll applies pending updates and checks the component once. It returns done=false while the
// target has not been reached yet. When done, the component is nil if the wait failed; Wait tells
// the reasons apart.
func (f *ComponentStateFuture) Poll() (*StreamComponent, bool) {
	c, done, err := f.poll()
	if !done || err != nil {
		return nil, done
	}
	return c, true
}

func (f *ComponentStateFuture) poll() (*StreamComponent, bool, error) {
	c := f.component
	c.mu.Lock()
	defer c.mu.Unlock()
	return f.checkLocked()
}

func (f *ComponentStateFuture) checkLocked() (*StreamComponent, bool, error) {
	c := f.component
	if c.drainLocked() {
		return nil, true, ErrComponentClosed
	}
	if c.state == StateFailed {
		return nil, true, ErrComponentFailed
	}
	if c.state.Reached(f.target) {
		return c, true, nil
	}
	return nil, false, nil
}

// Wait blocks until the future resolves or ctx is done. A cancelled wait leaves the future usable.
// Any number of futures and Recv calls may wait on the same component.
func (f *ComponentStateFuture) Wait(ctx context.Context) (*StreamComponent, error) {
	c := f.component
	for {
		c.mu.Lock()
		res, done, err := f.checkLocked()
		states, changed := c.watchLocked()
		c.mu.Unlock()
		if done {
			return res, err
		}

		if err := c.wait(ctx, states, changed); err != nil {
			return nil, err
		}
	}
}
