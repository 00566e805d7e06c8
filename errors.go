package channels

import "errors"

const Namespace = "channels"

var (
	// ErrClosedForSend matches any error produced by sending on a closed
	// channel. Use errors.Is.
	ErrClosedForSend = errors.New(Namespace + ": send on closed channel")

	// ErrClosedForReceive matches any error produced by receiving from a
	// channel that is closed and drained. Use errors.Is.
	ErrClosedForReceive = errors.New(Namespace + ": receive from closed channel")

	// ErrCancelled is the default close cause applied by Cancel when the
	// caller does not supply one.
	ErrCancelled = errors.New(Namespace + ": channel was cancelled")

	// ErrInvalidCapacity is the panic value of NewBuffered for capacities
	// below 1.
	ErrInvalidCapacity = errors.New(Namespace + ": capacity must be at least 1")
)

// SendClosedError is returned by Send (and carried by TrySend results) when
// the channel has been closed for sending. Cause is the close cause and may
// be nil for a normal closure.
type SendClosedError struct {
	Cause error
}

func (e *SendClosedError) Error() string {
	if e.Cause != nil {
		return ErrClosedForSend.Error() + ": " + e.Cause.Error()
	}
	return ErrClosedForSend.Error()
}

func (e *SendClosedError) Unwrap() error { return e.Cause }

func (e *SendClosedError) Is(target error) bool { return target == ErrClosedForSend }

// ReceiveClosedError is returned by Receive (and carried by TryReceive
// results) when the channel is closed and no buffered elements remain.
// Cause is nil for a normal closure and non-nil after Cancel.
type ReceiveClosedError struct {
	Cause error
}

func (e *ReceiveClosedError) Error() string {
	if e.Cause != nil {
		return ErrClosedForReceive.Error() + ": " + e.Cause.Error()
	}
	return ErrClosedForReceive.Error()
}

func (e *ReceiveClosedError) Unwrap() error { return e.Cause }

func (e *ReceiveClosedError) Is(target error) bool { return target == ErrClosedForReceive }

// ExtractCloseCause returns the close cause carried by err, if err originated
// from a closed-channel operation. The second return reports whether err was
// such an error at all; the cause itself may still be nil for normal closure.
func ExtractCloseCause(err error) (error, bool) {
	var se *SendClosedError
	if errors.As(err, &se) {
		return se.Cause, true
	}
	var re *ReceiveClosedError
	if errors.As(err, &re) {
		return re.Cause, true
	}
	return nil, false
}
