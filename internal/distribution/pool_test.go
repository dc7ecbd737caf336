package distribution

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_DefaultSize(t *testing.T) {
	require.Positive(t, NewPool(0).Size())
	require.Equal(t, 3, NewPool(3).Size())
}

func TestGroup_BoundedConcurrency(t *testing.T) {
	pool := NewPool(3)
	g := pool.NewGroup(context.Background(), false)

	var running, peak, done atomic.Int32
	for i := 0; i < 20; i++ {
		g.Go(func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
			return nil
		})
	}
	errs, skipped := g.Wait()

	require.Empty(t, errs)
	require.Zero(t, skipped)
	require.EqualValues(t, 20, done.Load())
	require.LessOrEqual(t, peak.Load(), int32(3))
}

func TestGroup_BestEffortCollectsAll(t *testing.T) {
	g := NewPool(4).NewGroup(context.Background(), false)
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		g.Go(func(ctx context.Context) error {
			if i%2 == 0 {
				return boom
			}
			return nil
		})
	}
	errs, skipped := g.Wait()
	require.Len(t, errs, 5)
	require.Zero(t, skipped)
}

func TestGroup_FailFastSkipsPending(t *testing.T) {
	g := NewPool(1).NewGroup(context.Background(), true)
	boom := errors.New("boom")

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		g.Go(func(ctx context.Context) error {
			ran.Add(1)
			if i == 0 {
				return boom
			}
			return nil
		})
	}
	errs, skipped := g.Wait()

	require.Equal(t, []error{boom}, errs)
	require.Equal(t, 4, skipped)
	require.EqualValues(t, 1, ran.Load())
}

func TestGroup_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewPool(2).NewGroup(ctx, false)
	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		g.Go(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	errs, skipped := g.Wait()
	require.Empty(t, errs)
	require.Equal(t, 3, skipped)
	require.Zero(t, ran.Load())
}
