package channels

import (
	"context"
	"fmt"
	"iter"
)

// SendChannel is the producer surface of a channel. Implementations are safe
// for concurrent use by any number of producers.
type SendChannel[T any] interface {
	// Send delivers v, parking the caller while no buffer slot or receiver
	// is available. See core.Send for the error contract.
	Send(ctx context.Context, v T) error

	// TrySend attempts a non-parking send.
	TrySend(v T) TryResult[T]

	// Close closes the channel for sending; idempotent, first call returns
	// true. A nil cause is a normal closure.
	Close(cause error) bool

	// OnClose registers the channel's single close handler.
	OnClose(h func(cause error))

	IsClosedForSend() bool
	IsFull() bool

	registerSend(w *sendWaiter[T]) selectStatus
	unregisterSend(w *sendWaiter[T])
}

// ReceiveChannel is the consumer surface of a channel. Implementations are
// safe for concurrent use by any number of consumers.
type ReceiveChannel[T any] interface {
	// Receive returns the next element, parking the caller while the
	// channel is empty.
	Receive(ctx context.Context) (T, error)

	// TryReceive attempts a non-parking receive.
	TryReceive() TryResult[T]

	// ReceiveCatching folds closure into the result instead of an error.
	ReceiveCatching(ctx context.Context) (TryResult[T], error)

	// All iterates the channel's elements until closure. Each consumed
	// element advances channel state; the sequence is not restartable.
	All(ctx context.Context) iter.Seq[T]

	// Cancel closes the channel with cause and discards buffered elements.
	Cancel(cause error)

	IsClosedForReceive() bool
	IsEmpty() bool

	registerReceive(w *recvWaiter[T]) selectStatus
	unregisterReceive(w *recvWaiter[T])
}

// Channel combines both surfaces.
type Channel[T any] interface {
	SendChannel[T]
	ReceiveChannel[T]
	fmt.Stringer
}

var (
	_ Channel[int] = (*Buffered[int])(nil)
	_ Channel[int] = (*Conflated[int])(nil)
)
