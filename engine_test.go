package channels

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendClosedError(t *testing.T) {
	t.Parallel()

	bare := &SendClosedError{}
	require.Equal(t, "channels: send on closed channel", bare.Error())
	require.ErrorIs(t, bare, ErrClosedForSend)
	require.NoError(t, bare.Unwrap())

	cause := errors.New("shutdown")
	wrapped := &SendClosedError{Cause: cause}
	require.Equal(t, "channels: send on closed channel: shutdown", wrapped.Error())
	require.ErrorIs(t, wrapped, ErrClosedForSend)
	require.ErrorIs(t, wrapped, cause)
}

func TestReceiveClosedError(t *testing.T) {
	t.Parallel()

	cause := errors.New("shutdown")
	wrapped := &ReceiveClosedError{Cause: cause}
	require.Equal(t, "channels: receive from closed channel: shutdown", wrapped.Error())
	require.ErrorIs(t, wrapped, ErrClosedForReceive)
	require.ErrorIs(t, wrapped, cause)
}

func TestExtractCloseCause_NonCloseError(t *testing.T) {
	t.Parallel()

	_, ok := ExtractCloseCause(errors.New("unrelated"))
	require.False(t, ok)
	_, ok = ExtractCloseCause(nil)
	require.False(t, ok)
}

// TestReceiveCancelDeliveryRace: racing a delivery against the receiver's
// cancellation must resolve to exactly one outcome — either the receiver got
// the element, or the element is still in the channel. Nothing is lost,
// nothing is duplicated.
func TestReceiveCancelDeliveryRace(t *testing.T) {
	t.Parallel()

	const rounds = 500
	for i := 0; i < rounds; i++ {
		ch := NewBuffered[int](1)
		rctx, cancel := context.WithCancel(context.Background())

		type outcome struct {
			v   int
			err error
		}
		got := make(chan outcome, 1)
		go func() {
			v, err := ch.Receive(rctx)
			got <- outcome{v, err}
		}()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ch.Send(context.Background(), i)
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
		wg.Wait()

		o := <-got
		if o.err == nil {
			require.Equal(t, i, o.v)
			require.True(t, ch.IsEmpty(), "round %d: delivered element must leave the channel", i)
		} else {
			require.ErrorIs(t, o.err, context.Canceled)
			r := ch.TryReceive()
			require.True(t, r.IsSuccess(), "round %d: undelivered element must stay buffered", i)
			v, _ := r.Get()
			require.Equal(t, i, v)
		}
	}
}

// TestSendCancelCloseRace: a parked sender that races cancellation against
// close must observe exactly one of the two errors, and the element is never
// delivered.
func TestSendCancelCloseRace(t *testing.T) {
	t.Parallel()

	const rounds = 200
	for i := 0; i < rounds; i++ {
		ch := NewBuffered[int](1)
		require.NoError(t, ch.Send(context.Background(), -1))

		sctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- ch.Send(sctx, i) }()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancel()
		}()
		go func() {
			defer wg.Done()
			ch.Close(nil)
		}()
		wg.Wait()

		err := <-errCh
		require.Error(t, err, "round %d", i)
		require.True(t,
			errors.Is(err, context.Canceled) || errors.Is(err, ErrClosedForSend),
			"round %d: unexpected error %v", i, err)

		r := ch.TryReceive()
		require.True(t, r.IsSuccess())
		v, _ := r.Get()
		require.Equal(t, -1, v, "round %d: the parked element must not be delivered", i)
	}
}
