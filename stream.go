package channels

import (
	"context"
	"errors"
)

// ForEach receives from ch until it is closed, applying fn to every element.
// It returns nil on a normal closure, the close error when the channel was
// cancelled with a cause, ctx.Err() when the caller's context ends first, or
// the first error returned by fn (which stops consumption; remaining
// elements stay in the channel).
func ForEach[T any](ctx context.Context, ch ReceiveChannel[T], fn func(context.Context, T) error) error {
	for {
		r, err := ch.ReceiveCatching(ctx)
		if err != nil {
			return err
		}
		if r.IsClosed() {
			var rce *ReceiveClosedError
			if errors.As(r.Err(), &rce) && rce.Cause != nil {
				return r.Err()
			}
			return nil
		}
		v, _ := r.Get()
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

// Collect drains ch into a slice until closure. On error the elements
// received so far are returned alongside it.
func Collect[T any](ctx context.Context, ch ReceiveChannel[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, ch, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// Pipe forwards every element of src into dst until src closes or ctx ends,
// then closes dst. A cancellation cause carried by src propagates as dst's
// close cause; dst is closed normally otherwise.
func Pipe[T any](ctx context.Context, src ReceiveChannel[T], dst SendChannel[T]) error {
	err := ForEach(ctx, src, func(ctx context.Context, v T) error {
		return dst.Send(ctx, v)
	})
	var cause error
	if c, ok := ExtractCloseCause(err); ok {
		cause = c
	}
	dst.Close(cause)
	return err
}
