package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForEach_NormalClosure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewBuffered[int](4)
	for i := 1; i <= 4; i++ {
		require.NoError(t, ch.Send(ctx, i))
	}
	ch.Close(nil)

	var got []int
	err := ForEach(ctx, ch, func(_ context.Context, v int) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestForEach_CancelledChannelPropagatesCause(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("upstream failure")
	ch := NewBuffered[int](2)
	require.NoError(t, ch.Send(ctx, 1))
	ch.Cancel(cause)

	err := ForEach(ctx, ch, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, ErrClosedForReceive)
	got, ok := ExtractCloseCause(err)
	require.True(t, ok)
	require.ErrorIs(t, got, cause)
}

func TestForEach_CallbackErrorStopsConsumption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewBuffered[int](3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, ch.Send(ctx, i))
	}

	boom := errors.New("boom")
	err := ForEach(ctx, ch, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, ch.Len(), "remaining elements stay buffered")
}

func TestCollect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewBuffered[string](2)

	go func() {
		for _, s := range []string{"a", "b", "c"} {
			if err := ch.Send(ctx, s); err != nil {
				return
			}
		}
		ch.Close(nil)
	}()

	got, err := Collect(ctx, ch)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPipe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := NewBuffered[int](2)
	dst := NewBuffered[int](8)

	for i := 1; i <= 3; i++ {
		require.NoError(t, src.Send(ctx, i))
	}
	src.Close(nil)

	require.NoError(t, Pipe(ctx, src, dst))
	require.True(t, dst.IsClosedForSend(), "pipe must close the destination")

	got, err := Collect(ctx, dst)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestPipe_PropagatesCancelCause(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("source died")
	src := NewBuffered[int](1)
	dst := NewBuffered[int](1)
	src.Cancel(cause)

	err := Pipe(ctx, src, dst)
	require.ErrorIs(t, err, ErrClosedForReceive)

	require.True(t, dst.IsClosedForSend())
	r := dst.TryReceive()
	require.True(t, r.IsClosed())
	got, ok := ExtractCloseCause(r.Err())
	require.True(t, ok)
	require.ErrorIs(t, got, cause)
}
