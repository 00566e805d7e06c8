package channels

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	uatomic "go.uber.org/atomic"

	"github.com/ygrebnov/channels/metrics"
)

// opStatus is the outcome of a buffer-policy offer or poll.
type opStatus int

const (
	opSuccess opStatus = iota
	// opFailed: the buffer rejected the operation (full on offer, empty on
	// poll). Never user-visible; the engine parks or reports Failed.
	opFailed
	opClosed
)

// selectStatus is the outcome of registering a select clause with a channel.
type selectStatus int

const (
	// selectParked: the clause waiter was enqueued; a later partner or the
	// close drain completes it.
	selectParked selectStatus = iota
	// selectDone: the clause won the election and its completion has been
	// fired.
	selectDone
	// selectLost: the selector was already won by another clause; the
	// channel state was left untouched.
	selectLost
)

// closedMarker is the terminal close record. It is set exactly once and
// never cleared; cause is nil for a normal closure.
type closedMarker struct {
	cause error
}

func (m *closedMarker) sendErr() error    { return &SendClosedError{Cause: m.cause} }
func (m *closedMarker) receiveErr() error { return &ReceiveClosedError{Cause: m.cause} }

// bufferPolicy is the concrete half of a channel: buffer state behind a
// short lock. Methods manage their own locking and never complete a waiter
// while holding it; completions are handed back or performed after unlock.
type bufferPolicy[T any] interface {
	// offer places v into the buffer or hands it to a parked receiver.
	offer(v T) (opStatus, *closedMarker)
	// poll extracts the next element, promoting a parked sender when a
	// buffer slot frees up.
	poll() (T, opStatus, *closedMarker)
	// offerSelect is offer on behalf of a select clause: any state change
	// commits together with the clause election.
	offerSelect(w *sendWaiter[T]) selectStatus
	// pollSelect is poll on behalf of a select clause.
	pollSelect(w *recvWaiter[T]) selectStatus
	// enqueueSend parks w, only while the channel is still open and the
	// buffer still full; false tells the engine to retry the offer.
	enqueueSend(w *sendWaiter[T]) bool
	// enqueueReceive parks w, only while still open and empty.
	enqueueReceive(w *recvWaiter[T]) bool
	// closeBarrier orders in-flight enqueues before the close drain.
	closeBarrier()
	// cancelCleanup discards buffered elements after a Cancel.
	cancelCleanup()
	empty() bool
	full() bool
}

// instruments groups the engine's metric handles. Counters are recorded
// outside the buffer lock; the provider may be arbitrarily slow.
type instruments struct {
	sends       metrics.Counter
	receives    metrics.Counter
	parks       metrics.Counter
	conflations metrics.Counter
	closes      metrics.Counter
	parked      metrics.UpDownCounter
	parkTime    metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		sends:       p.Counter("channels_send_total", metrics.WithUnit("1")),
		receives:    p.Counter("channels_receive_total", metrics.WithUnit("1")),
		parks:       p.Counter("channels_park_total", metrics.WithUnit("1")),
		conflations: p.Counter("channels_conflated_total", metrics.WithUnit("1")),
		closes:      p.Counter("channels_close_total", metrics.WithUnit("1")),
		parked:      p.UpDownCounter("channels_parked", metrics.WithUnit("1")),
		parkTime: p.Histogram("channels_park_seconds", metrics.WithUnit("seconds"),
			metrics.WithBuckets(metrics.DefaultParkBuckets...)),
	}
}

// core is the shared channel engine: waiter queues, close state, the
// park/resume protocol, and every operation that does not touch the buffer
// directly. Concrete channels embed a core and implement bufferPolicy.
type core[T any] struct {
	senders   waiterList[sendWaiter[T]]
	receivers waiterList[recvWaiter[T]]
	closed    atomic.Pointer[closedMarker]

	policy bufferPolicy[T]
	m      instruments

	closeHandler atomic.Pointer[func(error)]
	handlerRun   uatomic.Bool
}

func newCore[T any](p bufferPolicy[T], o *channelOptions) *core[T] {
	c := &core[T]{policy: p, m: newInstruments(o.metrics)}
	c.senders.init()
	c.receivers.init()
	return c
}

func (c *core[T]) closedMarker() *closedMarker { return c.closed.Load() }

// Send delivers v, parking the caller while the buffer is full and no
// receiver is waiting. It returns nil once the element is accepted, a
// *SendClosedError if the channel closes first, or ctx.Err() if the caller
// is cancelled while parked (the element is then not delivered).
func (c *core[T]) Send(ctx context.Context, v T) error {
	for {
		st, cm := c.policy.offer(v)
		switch st {
		case opSuccess:
			c.m.sends.Add(1)
			return nil
		case opClosed:
			return cm.sendErr()
		}

		cont := newContinuation[struct{}]()
		w := &sendWaiter[T]{elem: v}
		w.node.owner = w
		w.finish = func(cm *closedMarker) {
			if cm != nil {
				cont.resume(fn.Err[struct{}](cm.sendErr()))
				return
			}
			cont.resume(fn.Ok(struct{}{}))
		}
		if !c.policy.enqueueSend(w) {
			continue
		}
		c.m.parks.Add(1)
		c.m.parked.Add(1)
		start := time.Now()
		res := cont.await(ctx, func() bool {
			if !w.tryCancel() {
				return false
			}
			c.senders.remove(&w.node)
			return true
		})
		c.m.parked.Add(-1)
		c.m.parkTime.Record(time.Since(start).Seconds())
		if _, err := res.Unpack(); err != nil {
			return err
		}
		c.m.sends.Add(1)
		return nil
	}
}

// TrySend attempts a non-parking send. The result is success, failed (buffer
// full), or closed.
func (c *core[T]) TrySend(v T) TryResult[T] {
	st, cm := c.policy.offer(v)
	switch st {
	case opSuccess:
		c.m.sends.Add(1)
		return successResult(v)
	case opClosed:
		return closedResult[T](cm.sendErr())
	default:
		return failedResult[T]()
	}
}

// Receive returns the next element, parking the caller while the channel is
// empty. It fails with a *ReceiveClosedError when the channel is closed and
// drained, or with ctx.Err() when the caller is cancelled while parked.
func (c *core[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		v, st, cm := c.policy.poll()
		switch st {
		case opSuccess:
			c.m.receives.Add(1)
			return v, nil
		case opClosed:
			return zero, cm.receiveErr()
		}

		cont := newContinuation[T]()
		w := &recvWaiter[T]{}
		w.node.owner = w
		w.finish = func(v T, cm *closedMarker) {
			if cm != nil {
				cont.resume(fn.Err[T](cm.receiveErr()))
				return
			}
			cont.resume(fn.Ok(v))
		}
		if !c.policy.enqueueReceive(w) {
			continue
		}
		c.m.parks.Add(1)
		c.m.parked.Add(1)
		start := time.Now()
		res := cont.await(ctx, func() bool {
			if !w.tryCancel() {
				return false
			}
			c.receivers.remove(&w.node)
			return true
		})
		c.m.parked.Add(-1)
		c.m.parkTime.Record(time.Since(start).Seconds())
		v, err := res.Unpack()
		if err != nil {
			return zero, err
		}
		c.m.receives.Add(1)
		return v, nil
	}
}

// TryReceive attempts a non-parking receive: success with the element,
// failed when empty, closed when closed and drained.
func (c *core[T]) TryReceive() TryResult[T] {
	v, st, cm := c.policy.poll()
	switch st {
	case opSuccess:
		c.m.receives.Add(1)
		return successResult(v)
	case opClosed:
		return closedResult[T](cm.receiveErr())
	default:
		return failedResult[T]()
	}
}

// ReceiveCatching is Receive with closure folded into the result: a closed
// channel yields a closed TryResult instead of an error. The error return is
// reserved for the caller's own cancellation.
func (c *core[T]) ReceiveCatching(ctx context.Context) (TryResult[T], error) {
	v, err := c.Receive(ctx)
	if err == nil {
		return successResult(v), nil
	}
	if _, ok := ExtractCloseCause(err); ok {
		return closedResult[T](err), nil
	}
	return failedResult[T](), err
}

// All returns a lazy iterator over the channel's elements. Each consumed
// element advances channel state; the sequence is not restartable and ends
// when the channel closes or ctx is done.
func (c *core[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := c.Receive(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Close closes the channel for sending. The first call wins and returns
// true; later calls are no-ops. Parked senders are resumed with the close
// marker; parked receivers likewise (a parked receiver implies an empty
// buffer). Buffered elements remain receivable.
func (c *core[T]) Close(cause error) bool {
	cm := &closedMarker{cause: cause}
	if !c.closed.CompareAndSwap(nil, cm) {
		return false
	}
	// Any enqueue still in flight holds the buffer lock and checked the
	// marker under it; passing through the lock here orders it before the
	// drain below.
	c.policy.closeBarrier()
	c.drain(cm)
	c.m.closes.Add(1)
	c.runCloseHandler(cm)
	return true
}

// Cancel closes the channel with cause (ErrCancelled when nil) and discards
// all buffered elements. Parked waiters are resumed with the close marker.
func (c *core[T]) Cancel(cause error) {
	if cause == nil {
		cause = ErrCancelled
	}
	c.Close(cause)
	c.policy.cancelCleanup()
}

func (c *core[T]) drain(cm *closedMarker) {
	for {
		w := c.claimSender()
		if w == nil {
			break
		}
		w.complete(cm)
	}
	var zero T
	for {
		w := c.claimReceiver()
		if w == nil {
			break
		}
		w.complete(zero, cm)
	}
}

// OnClose registers a handler invoked exactly once with the close cause. At
// most one handler may be registered per channel; when the channel is
// already closed the handler runs immediately.
func (c *core[T]) OnClose(h func(cause error)) {
	if h == nil {
		panic(Namespace + ": nil close handler")
	}
	if !c.closeHandler.CompareAndSwap(nil, &h) {
		panic(Namespace + ": close handler already registered")
	}
	if cm := c.closed.Load(); cm != nil {
		c.runCloseHandler(cm)
	}
}

func (c *core[T]) runCloseHandler(cm *closedMarker) {
	if hp := c.closeHandler.Load(); hp != nil && c.handlerRun.CompareAndSwap(false, true) {
		(*hp)(cm.cause)
	}
}

// IsClosedForSend reports whether Close or Cancel has been called.
func (c *core[T]) IsClosedForSend() bool { return c.closed.Load() != nil }

// IsClosedForReceive reports whether the channel is closed and drained.
func (c *core[T]) IsClosedForReceive() bool {
	return c.closed.Load() != nil && c.policy.empty()
}

// IsEmpty reports whether no element is buffered.
func (c *core[T]) IsEmpty() bool { return c.policy.empty() }

// IsFull reports whether the buffer cannot accept another element without a
// receiver. Always false for a conflated channel.
func (c *core[T]) IsFull() bool { return c.policy.full() }

// claimSender claims the first live parked sender, unlinking dead nodes on
// the way. The returned waiter is off the queue and must be completed by the
// caller after the buffer lock is released.
func (c *core[T]) claimSender() *sendWaiter[T] {
	for {
		n := c.senders.first()
		if n == nil {
			return nil
		}
		w := n.owner
		claimed := w.tryClaim()
		c.senders.remove(n)
		if claimed {
			return w
		}
	}
}

// claimReceiver is the receiver-side twin of claimSender.
func (c *core[T]) claimReceiver() *recvWaiter[T] {
	for {
		n := c.receivers.first()
		if n == nil {
			return nil
		}
		w := n.owner
		claimed := w.tryClaim()
		c.receivers.remove(n)
		if claimed {
			return w
		}
	}
}

// claimReceiverFor claims the first live parked receiver as the rendezvous
// partner of selector s, committing both elections atomically. Receivers
// parked by the same selector are skipped: a select cannot rendezvous with
// itself.
func (c *core[T]) claimReceiverFor(s *selector, index int) (*recvWaiter[T], pairStatus) {
	n := c.receivers.first()
	for n != nil {
		w := n.owner
		if w.sel == s {
			n = c.receivers.nextLive(n)
			continue
		}
		switch w.claimFor(s, index) {
		case pairClaimed:
			c.receivers.remove(n)
			return w, pairClaimed
		case pairSelfLost:
			return nil, pairSelfLost
		case pairDead:
			c.receivers.remove(n)
			n = c.receivers.first()
		default:
			panic(Namespace + ": unexpected claim outcome")
		}
	}
	return nil, pairNone
}

// registerSend and friends seal the public interfaces to this package's
// implementations; the select clause constructors are their only callers.
func (c *core[T]) registerSend(w *sendWaiter[T]) selectStatus {
	return c.policy.offerSelect(w)
}

func (c *core[T]) unregisterSend(w *sendWaiter[T]) {
	w.tryCancel()
	c.senders.remove(&w.node)
}

func (c *core[T]) registerReceive(w *recvWaiter[T]) selectStatus {
	return c.policy.pollSelect(w)
}

func (c *core[T]) unregisterReceive(w *recvWaiter[T]) {
	w.tryCancel()
	c.receivers.remove(&w.node)
}
