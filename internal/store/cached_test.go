package store_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/segmentation/internal/cache"
	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/store"
	"github.com/dropDatabas3/segmentation/internal/store/adapters/memory"
)

type countingSegments struct {
	repository.SegmentRepository
	byName atomic.Int32
}

func (c *countingSegments) GetByName(ctx context.Context, name string) (*repository.Segment, error) {
	c.byName.Add(1)
	return c.SegmentRepository.GetByName(ctx, name)
}

func TestCachedSegments_GetByName(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	created, err := mem.Segments().Create(ctx, "beta", "early adopters")
	require.NoError(t, err)

	inner := &countingSegments{SegmentRepository: mem.Segments()}
	repo := store.NewCachedSegments(inner, cache.NewMemory("test", 0), time.Minute)

	for i := 0; i < 3; i++ {
		seg, err := repo.GetByName(ctx, "beta")
		require.NoError(t, err)
		require.Equal(t, created.ID, seg.ID)
		require.Equal(t, "early adopters", seg.Description)
	}
	require.EqualValues(t, 1, inner.byName.Load())

	// La entrada por ID se llenó con el lookup por nombre.
	seg, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "beta", seg.Name)
}

func TestCachedSegments_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	inner := &countingSegments{SegmentRepository: mem.Segments()}
	repo := store.NewCachedSegments(inner, cache.NewMemory("", 0), time.Minute)

	_, err := repo.GetByName(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = mem.Segments().Create(ctx, "missing", "")
	require.NoError(t, err)

	seg, err := repo.GetByName(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, "missing", seg.Name)
	require.EqualValues(t, 2, inner.byName.Load())
}

// gatedSegments bloquea GetByName hasta que se cierre gate.
type gatedSegments struct {
	repository.SegmentRepository
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedSegments) GetByName(ctx context.Context, name string) (*repository.Segment, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate
	return g.SegmentRepository.GetByName(ctx, name)
}

func TestCachedSegments_CancelledCallerDoesNotFailOthers(t *testing.T) {
	mem := memory.New()
	_, err := mem.Segments().Create(context.Background(), "beta", "")
	require.NoError(t, err)

	inner := &gatedSegments{
		SegmentRepository: mem.Segments(),
		entered:           make(chan struct{}, 1),
		gate:              make(chan struct{}),
	}
	repo := store.NewCachedSegments(inner, cache.NewMemory("", 0), time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := repo.GetByName(ctxA, "beta")
		errA <- err
	}()
	<-inner.entered

	type result struct {
		seg *repository.Segment
		err error
	}
	resB := make(chan result, 1)
	go func() {
		seg, err := repo.GetByName(context.Background(), "beta")
		resB <- result{seg, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(inner.gate)

	b := <-resB
	require.NoError(t, b.err)
	require.Equal(t, "beta", b.seg.Name)
}

func TestNewCachedSegments_Disabled(t *testing.T) {
	mem := memory.New()
	repo := store.NewCachedSegments(mem.Segments(), cache.NewMemory("", 0), 0)
	require.Equal(t, mem.Segments(), repo)
}
