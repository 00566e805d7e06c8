package channels

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// continuation carries the resumption of one parked operation. resume is
// called at most once, enforced by the waiter claim protocol; await returns
// either the resumed result or the caller's cancellation error.
type continuation[T any] struct {
	done chan fn.Result[T]
}

func newContinuation[T any]() *continuation[T] {
	return &continuation[T]{done: make(chan fn.Result[T], 1)}
}

// resume completes the parked operation. It never blocks and never runs
// under a channel lock.
func (c *continuation[T]) resume(r fn.Result[T]) {
	c.done <- r
}

// await parks the caller until resumed or ctx is done. cancel attempts to
// withdraw the parked waiter; when it reports false the claim was already
// taken, the resumption is imminent, and its outcome is returned instead of
// the cancellation so that a delivered element is never dropped.
func (c *continuation[T]) await(ctx context.Context, cancel func() bool) fn.Result[T] {
	select {
	case r := <-c.done:
		return r
	case <-ctx.Done():
		if cancel() {
			return fn.Err[T](ctx.Err())
		}
		return <-c.done
	}
}
