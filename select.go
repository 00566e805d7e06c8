package channels

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// selector is the at-most-once winner election shared by the clauses of one
// Select call. Election (trySelect, claimFor) happens under mu, possibly
// inside a channel's buffer lock; the wake signal fires afterwards, outside
// every lock. ids order the two-selector rendezvous commit.
type selector struct {
	id     uint64
	mu     sync.Mutex
	chosen bool
	winner int
	signal chan struct{}
}

var selectorIDs atomic.Uint64

func newSelector() *selector {
	return &selector{
		id:     selectorIDs.Inc(),
		winner: -1,
		signal: make(chan struct{}, 1),
	}
}

// trySelect elects clause index as the winner. Exactly one call per selector
// returns true.
func (s *selector) trySelect(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chosen {
		return false
	}
	s.chosen, s.winner = true, index
	return true
}

// fire wakes the selecting goroutine. Called exactly once, by the winning
// clause's completion, after the winner's payload is in place.
func (s *selector) fire() { s.signal <- struct{}{} }

// SelectClause is one arm of a Select call. Construct clauses with OnSend,
// OnReceive, or OnReceiveCatching.
type SelectClause interface {
	register(s *selector, index int) selectStatus
	unregister()
	perform() error
}

// Select waits until exactly one of the clauses can complete, performs it,
// and runs its action; every losing clause leaves its channel untouched. A
// closed channel completes OnSend and OnReceive clauses with the close
// error, and OnReceiveCatching clauses with a closed result. Select returns
// the winning action's error, the close error, or ctx.Err() if the caller is
// cancelled before any clause completes. It panics when called with no
// clauses.
func Select(ctx context.Context, clauses ...SelectClause) error {
	if len(clauses) == 0 {
		panic(Namespace + ": select requires at least one clause")
	}
	s := newSelector()
	registered := 0
	pending := true
	for i, cl := range clauses {
		registered = i + 1
		st := cl.register(s, i)
		if st != selectParked {
			// selectDone fired the signal already; selectLost means an
			// earlier parked clause won and its completion fires it.
			pending = false
			break
		}
	}

	if pending {
		select {
		case <-s.signal:
		case <-ctx.Done():
			if s.trySelect(-1) {
				for _, cl := range clauses[:registered] {
					cl.unregister()
				}
				return ctx.Err()
			}
			// A partner committed first; honor its delivery.
			<-s.signal
		}
	} else {
		<-s.signal
	}

	winner := s.winner
	for _, cl := range clauses[:registered] {
		cl.unregister()
	}
	return clauses[winner].perform()
}

// OnSend is a clause sending v on ch. action, which may be nil, runs after
// the send is accepted.
func OnSend[T any](ch SendChannel[T], v T, action func() error) SelectClause {
	return &sendClause[T]{ch: ch, v: v, action: action}
}

type sendClause[T any] struct {
	ch     SendChannel[T]
	v      T
	action func() error

	err error
	w   *sendWaiter[T]
}

func (c *sendClause[T]) register(s *selector, index int) selectStatus {
	w := &sendWaiter[T]{elem: c.v}
	w.sel, w.selIndex = s, index
	w.node.owner = w
	w.finish = func(cm *closedMarker) {
		if cm != nil {
			c.err = cm.sendErr()
		}
		s.fire()
	}
	c.w = w
	return c.ch.registerSend(w)
}

func (c *sendClause[T]) unregister() {
	if c.w != nil {
		c.ch.unregisterSend(c.w)
	}
}

func (c *sendClause[T]) perform() error {
	if c.err != nil {
		return c.err
	}
	if c.action == nil {
		return nil
	}
	return c.action()
}

// OnReceive is a clause receiving from ch; action runs with the received
// element. A closed channel completes the Select with the close error.
func OnReceive[T any](ch ReceiveChannel[T], action func(v T) error) SelectClause {
	if action == nil {
		panic(Namespace + ": nil receive action")
	}
	return &recvClause[T]{ch: ch, action: func(r TryResult[T]) error {
		v, _ := r.Get()
		return action(v)
	}}
}

// OnReceiveCatching is a clause receiving from ch with closure folded into
// the result: on a closed channel the action runs with a closed TryResult
// instead of the Select failing.
func OnReceiveCatching[T any](ch ReceiveChannel[T], action func(r TryResult[T]) error) SelectClause {
	if action == nil {
		panic(Namespace + ": nil receive action")
	}
	return &recvClause[T]{ch: ch, catching: true, action: action}
}

type recvClause[T any] struct {
	ch       ReceiveChannel[T]
	catching bool
	action   func(TryResult[T]) error

	res TryResult[T]
	w   *recvWaiter[T]
}

func (c *recvClause[T]) register(s *selector, index int) selectStatus {
	w := &recvWaiter[T]{}
	w.sel, w.selIndex = s, index
	w.node.owner = w
	w.finish = func(v T, cm *closedMarker) {
		if cm != nil {
			c.res = closedResult[T](cm.receiveErr())
		} else {
			c.res = successResult(v)
		}
		s.fire()
	}
	c.w = w
	return c.ch.registerReceive(w)
}

func (c *recvClause[T]) unregister() {
	if c.w != nil {
		c.ch.unregisterReceive(c.w)
	}
}

func (c *recvClause[T]) perform() error {
	if c.res.IsClosed() && !c.catching {
		return c.res.Err()
	}
	return c.action(c.res)
}
