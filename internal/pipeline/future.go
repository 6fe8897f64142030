package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrNotReady is returned by Future.Result before the future resolves.
var ErrNotReady = errors.New("pipeline: prototype not ready")

// Future is the pending result of a prototype request.
type Future struct {
	Domain     Domain
	Generation uint64

	done      chan struct{}
	once      sync.Once
	submitted bool // guarded by Pool.protoMu
	val       any
	err       error
}

func newFuture(d Domain, gen uint64) *Future {
	return &Future{Domain: d, Generation: gen, done: make(chan struct{})}
}

func (f *Future) resolve(v any, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Ready reports whether the future has resolved, successfully or not.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value without blocking.
func (f *Future) Result() (any, error) {
	if !f.Ready() {
		return nil, ErrNotReady
	}
	return f.val, f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
