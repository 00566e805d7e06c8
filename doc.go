// Package channels provides in-process asynchronous channels transferring
// values of a user-defined type between concurrent producers and consumers.
//
// Constructors
//   - NewBuffered(capacity, opts...): fixed-capacity FIFO channel. Senders
//     park when the buffer is full, receivers park when it is empty.
//   - NewConflated(opts...): a channel of at most one element. Send never
//     parks; each send overwrites any unreceived element, so a receiver
//     observes only the latest value.
//
// Defaults
// Unless overridden, a newly created channel uses:
//   - Metrics: a no-op provider (use WithMetrics to record).
//   - Buffered ring storage: min(capacity, 8) slots, doubling on demand up
//     to the capacity.
//
// Lifecycle
// Close(cause) stops sending: parked senders resume with a *SendClosedError,
// buffered elements remain receivable, and receivers observe a
// *ReceiveClosedError once the buffer drains. Cancel(cause) additionally
// discards buffered elements. Both are idempotent; OnClose registers a
// handler invoked exactly once with the close cause.
//
// Parked operations are cancellable through their context: a cancelled
// sender's element is not delivered, and cancellation that races with a
// delivery resolves in favor of the delivery.
//
// Select
// Select(ctx, clauses...) waits on several channel operations at once and
// performs exactly one. Clauses are built with OnSend, OnReceive, and
// OnReceiveCatching; losing clauses leave their channels untouched.
package channels
