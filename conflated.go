package channels

import (
	"fmt"
	"sync"
)

// Conflated is a channel holding at most one element. Send never parks: when
// no receiver is waiting it overwrites any unreceived element, so a receiver
// always observes the latest completed send. Receive parks while the slot is
// empty.
type Conflated[T any] struct {
	*core[T]

	// mu guards slot and present; held only for slot transitions.
	mu      sync.Mutex
	slot    T
	present bool
}

// NewConflated returns a conflating channel.
func NewConflated[T any](opts ...Option) *Conflated[T] {
	o := buildOptions(opts)
	ch := &Conflated[T]{}
	ch.core = newCore[T](ch, o)
	return ch
}

func (ch *Conflated[T]) String() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.present {
		return "(value=EMPTY)"
	}
	return fmt.Sprintf("(value=%v)", ch.slot)
}

func (ch *Conflated[T]) offer(v T) (opStatus, *closedMarker) {
	ch.mu.Lock()
	if cm := ch.closedMarker(); cm != nil {
		ch.mu.Unlock()
		return opClosed, cm
	}
	// A waiting receiver takes the element directly; the slot is not
	// touched and nothing is conflated.
	if w := ch.claimReceiver(); w != nil {
		ch.mu.Unlock()
		w.complete(v, nil)
		return opSuccess, nil
	}
	conflated := ch.present
	ch.slot, ch.present = v, true
	ch.mu.Unlock()
	if conflated {
		ch.m.conflations.Add(1)
	}
	return opSuccess, nil
}

func (ch *Conflated[T]) poll() (T, opStatus, *closedMarker) {
	var zero T
	ch.mu.Lock()
	if !ch.present {
		cm := ch.closedMarker()
		ch.mu.Unlock()
		if cm != nil {
			return zero, opClosed, cm
		}
		return zero, opFailed, nil
	}
	v := ch.slot
	ch.slot, ch.present = zero, false
	ch.mu.Unlock()
	return v, opSuccess, nil
}

func (ch *Conflated[T]) offerSelect(w *sendWaiter[T]) selectStatus {
	s := w.sel
	ch.mu.Lock()
	if cm := ch.closedMarker(); cm != nil {
		ch.mu.Unlock()
		if s.trySelect(w.selIndex) {
			w.complete(cm)
			return selectDone
		}
		return selectLost
	}
	r, st := ch.claimReceiverFor(s, w.selIndex)
	switch st {
	case pairClaimed:
		ch.mu.Unlock()
		r.complete(w.elem, nil)
		w.complete(nil)
		return selectDone
	case pairSelfLost:
		ch.mu.Unlock()
		return selectLost
	}
	if !s.trySelect(w.selIndex) {
		ch.mu.Unlock()
		return selectLost
	}
	conflated := ch.present
	ch.slot, ch.present = w.elem, true
	ch.mu.Unlock()
	if conflated {
		ch.m.conflations.Add(1)
	}
	w.complete(nil)
	return selectDone
}

func (ch *Conflated[T]) pollSelect(w *recvWaiter[T]) selectStatus {
	var zero T
	s := w.sel
	ch.mu.Lock()
	if !ch.present {
		if cm := ch.closedMarker(); cm != nil {
			ch.mu.Unlock()
			if s.trySelect(w.selIndex) {
				w.complete(zero, cm)
				return selectDone
			}
			return selectLost
		}
		ch.receivers.addLast(&w.node)
		ch.mu.Unlock()
		return selectParked
	}
	if !s.trySelect(w.selIndex) {
		ch.mu.Unlock()
		return selectLost
	}
	v := ch.slot
	ch.slot, ch.present = zero, false
	ch.mu.Unlock()
	w.complete(v, nil)
	return selectDone
}

// enqueueSend is never reachable: offer always succeeds or reports closed,
// so the engine's send loop never parks a sender here.
func (ch *Conflated[T]) enqueueSend(*sendWaiter[T]) bool { return false }

func (ch *Conflated[T]) enqueueReceive(w *recvWaiter[T]) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.receivers.addLastIf(&w.node, func() bool {
		return ch.closedMarker() == nil && !ch.present
	})
}

func (ch *Conflated[T]) closeBarrier() {
	ch.mu.Lock()
	//lint:ignore SA2001 the empty critical section is the barrier
	ch.mu.Unlock()
}

func (ch *Conflated[T]) cancelCleanup() {
	var zero T
	ch.mu.Lock()
	ch.slot, ch.present = zero, false
	ch.mu.Unlock()
}

func (ch *Conflated[T]) empty() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return !ch.present
}

// full reports false always: a conflated channel accepts every send.
func (ch *Conflated[T]) full() bool { return false }
