package channels

import "go.uber.org/atomic"

// Waiter claim states. pending -> claimed -> done is the two-phase handoff:
// a claim reserves the waiter for exactly one resumer, completion runs after
// the buffer lock is released. pending -> cancelled is the parked caller
// withdrawing; a cancel that loses the claim race changes nothing.
const (
	waiterPending uint32 = iota
	waiterClaimed
	waiterDone
	waiterCancelled
)

type pairStatus int

const (
	// pairNone: no live partner was queued.
	pairNone pairStatus = iota
	// pairClaimed: partner claimed and both selectors committed.
	pairClaimed
	// pairSelfLost: the registering selector was already won elsewhere;
	// the partner was left untouched.
	pairSelfLost
	// pairDead: the partner is cancelled or selected elsewhere.
	pairDead
)

// waiterCore is the claim state shared by send and receive waiters. Exactly
// one of the two ownership modes is active: a plain operation is guarded by
// the state CAS alone; a select clause is additionally guarded by its
// selector, which provides the at-most-once election across channels.
type waiterCore struct {
	state    atomic.Uint32
	sel      *selector
	selIndex int
}

// tryClaim reserves the waiter for resumption. For a select-bound waiter the
// claim doubles as the clause election.
func (w *waiterCore) tryClaim() bool {
	if w.sel != nil {
		if !w.sel.trySelect(w.selIndex) {
			return false
		}
		w.state.Store(waiterClaimed)
		return true
	}
	return w.state.CompareAndSwap(waiterPending, waiterClaimed)
}

// tryCancel withdraws a parked waiter. It fails when a resumer already holds
// the claim, in which case the resumption is imminent and must be honored.
func (w *waiterCore) tryCancel() bool {
	return w.state.CompareAndSwap(waiterPending, waiterCancelled)
}

// claimFor claims this waiter as the rendezvous partner of selector s (clause
// index), committing both elections together. When the partner is a plain
// waiter only s needs to commit; when both sides are selects, both selector
// locks are taken in id order so that two concurrent rendezvous attempts
// cannot deadlock and the double commit is atomic.
func (w *waiterCore) claimFor(s *selector, index int) pairStatus {
	if w.sel == nil {
		s.mu.Lock()
		if s.chosen {
			s.mu.Unlock()
			return pairSelfLost
		}
		if !w.state.CompareAndSwap(waiterPending, waiterClaimed) {
			s.mu.Unlock()
			return pairDead
		}
		s.chosen, s.winner = true, index
		s.mu.Unlock()
		return pairClaimed
	}

	a, b := s, w.sel
	if a.id > b.id {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	var st pairStatus
	switch {
	case s.chosen:
		st = pairSelfLost
	case w.sel.chosen || !w.state.CompareAndSwap(waiterPending, waiterClaimed):
		st = pairDead
	default:
		s.chosen, s.winner = true, index
		w.sel.chosen, w.sel.winner = true, w.selIndex
		st = pairClaimed
	}
	b.mu.Unlock()
	a.mu.Unlock()
	return st
}

// sendWaiter is a parked send; the element travels with the node. finish is
// the completion half of the handoff: it resumes a plain Send's continuation
// or fires the owning select, and always runs outside the buffer lock. A nil
// marker means the element was taken; a non-nil marker reports closure.
type sendWaiter[T any] struct {
	waiterCore
	node   listNode[sendWaiter[T]]
	elem   T
	finish func(cm *closedMarker)
}

func (w *sendWaiter[T]) complete(cm *closedMarker) {
	w.state.Store(waiterDone)
	w.finish(cm)
}

// recvWaiter is a parked receive. finish delivers the element or the close
// marker, outside the buffer lock.
type recvWaiter[T any] struct {
	waiterCore
	node   listNode[recvWaiter[T]]
	finish func(v T, cm *closedMarker)
}

func (w *recvWaiter[T]) complete(v T, cm *closedMarker) {
	w.state.Store(waiterDone)
	w.finish(v, cm)
}
