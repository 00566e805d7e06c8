package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/channels/metrics"
)

// TestConflated_LatestWins: three sends without an intervening receive leave
// only the last value; the next receive parks.
func TestConflated_LatestWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := metrics.NewBasicProvider()
	ch := NewConflated[int](WithMetrics(p))

	require.NoError(t, ch.Send(ctx, 1))
	require.NoError(t, ch.Send(ctx, 2))
	require.NoError(t, ch.Send(ctx, 3))

	got, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, got)

	conflated := p.Counter("channels_conflated_total").(*metrics.BasicCounter)
	require.Equal(t, int64(2), conflated.Snapshot())

	recvErr := make(chan error, 1)
	go func() {
		_, err := ch.Receive(ctx)
		recvErr <- err
	}()
	require.Eventually(t, func() bool { return parked(p) == 1 }, waitFor, time.Millisecond)

	require.NoError(t, ch.Send(ctx, 4))
	require.NoError(t, <-recvErr)
}

func TestConflated_SendNeverParks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewConflated[int]()
	for i := 0; i < 1000; i++ {
		require.NoError(t, ch.Send(ctx, i))
	}
	require.False(t, ch.IsFull())

	got, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, 999, got)
}

// TestConflated_DirectHandoff: a parked receiver takes the element directly;
// the slot stays empty, nothing is conflated.
func TestConflated_DirectHandoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := metrics.NewBasicProvider()
	ch := NewConflated[int](WithMetrics(p))

	got := make(chan int, 1)
	go func() {
		v, err := ch.Receive(ctx)
		require.NoError(t, err)
		got <- v
	}()
	require.Eventually(t, func() bool { return parked(p) == 1 }, waitFor, time.Millisecond)

	require.NoError(t, ch.Send(ctx, 42))
	require.Equal(t, 42, <-got)
	require.True(t, ch.IsEmpty())
}

func TestConflated_TryOps(t *testing.T) {
	t.Parallel()

	ch := NewConflated[string]()
	require.True(t, ch.TryReceive().IsFailed())
	require.True(t, ch.TrySend("a").IsSuccess())
	require.True(t, ch.TrySend("b").IsSuccess())

	r := ch.TryReceive()
	require.True(t, r.IsSuccess())
	v, _ := r.Get()
	require.Equal(t, "b", v)
	require.True(t, ch.TryReceive().IsFailed())
}

func TestConflated_CloseKeepsSlot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := NewConflated[int]()
	require.NoError(t, ch.Send(ctx, 9))
	require.True(t, ch.Close(nil))

	require.True(t, ch.TrySend(10).IsClosed())

	got, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, got)

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, ErrClosedForReceive)
}

func TestConflated_CancelResetsSlot(t *testing.T) {
	t.Parallel()

	cause := errors.New("shutting down")
	ch := NewConflated[int]()
	require.True(t, ch.TrySend(1).IsSuccess())

	ch.Cancel(cause)

	r := ch.TryReceive()
	require.True(t, r.IsClosed())
	got, ok := ExtractCloseCause(r.Err())
	require.True(t, ok)
	require.ErrorIs(t, got, cause)
	require.Equal(t, "(value=EMPTY)", ch.String())
}

func TestConflated_CloseResumesParkedReceiver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := metrics.NewBasicProvider()
	ch := NewConflated[int](WithMetrics(p))

	recvErr := make(chan error, 1)
	go func() {
		_, err := ch.Receive(ctx)
		recvErr <- err
	}()
	require.Eventually(t, func() bool { return parked(p) == 1 }, waitFor, time.Millisecond)

	ch.Close(nil)
	require.ErrorIs(t, <-recvErr, ErrClosedForReceive)
}

func TestConflated_String(t *testing.T) {
	t.Parallel()

	ch := NewConflated[int]()
	require.Equal(t, "(value=EMPTY)", ch.String())
	require.True(t, ch.TrySend(17).IsSuccess())
	require.Equal(t, "(value=17)", ch.String())
}
