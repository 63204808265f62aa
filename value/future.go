package value

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Result on a future that has not settled.
var ErrPending = errors.New("future: pending")

// Future is a single-assignment asynchronous result. Completion callbacks run
// on the goroutine that settles the future, or inline when registered after
// settlement.
type Future struct {
	result    Value
	err       error
	done      chan struct{}
	callbacks []func(Value, error)
	mu        sync.Mutex
	settled   bool
}

// NewFuture returns a pending future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already completed with v.
func Resolved(v Value) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Failed returns a future already completed with err.
func Failed(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve completes the future with v. It reports false if already settled.
func (f *Future) Resolve(v Value) bool {
	return f.settle(v, nil)
}

// Reject completes the future with err. It reports false if already settled.
func (f *Future) Reject(err error) bool {
	if err == nil {
		err = NewException(TypeError, "future rejected with nil error")
	}
	return f.settle(Value{}, err)
}

// Settle completes the future with either v or err.
func (f *Future) Settle(v Value, err error) bool {
	if err != nil {
		return f.Reject(err)
	}
	return f.Resolve(v)
}

func (f *Future) settle(v Value, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.result, f.err, f.settled = v, err, true
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(v, err)
	}
	return true
}

// OnComplete registers cb to run once the future settles.
func (f *Future) OnComplete(cb func(Value, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.result, f.err
	f.mu.Unlock()
	cb(v, err)
}

// Done is closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has settled.
func (f *Future) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled outcome, or ErrPending.
func (f *Future) Result() (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		return Value{}, ErrPending
	}
	return f.result, f.err
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (Value, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}
