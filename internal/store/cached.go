package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/segmentation/internal/cache"
	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// CachedSegments decora un SegmentRepository cacheando GetByID y GetByName.
// Los lookups concurrentes de la misma key se colapsan con singleflight.
// Exists y CountMembers siempre van al store.
type CachedSegments struct {
	repository.SegmentRepository

	cache cache.Client
	ttl   time.Duration
	sf    singleflight.Group
}

// NewCachedSegments envuelve next. Con ttl <= 0 no se cachea y retorna next tal cual.
func NewCachedSegments(next repository.SegmentRepository, c cache.Client, ttl time.Duration) repository.SegmentRepository {
	if c == nil || ttl <= 0 {
		return next
	}
	return &CachedSegments{SegmentRepository: next, cache: c, ttl: ttl}
}

func segmentIDKey(id int64) string     { return "segment:id:" + strconv.FormatInt(id, 10) }
func segmentNameKey(name string) string { return "segment:name:" + name }

func (r *CachedSegments) GetByID(ctx context.Context, segmentID int64) (*repository.Segment, error) {
	return r.lookup(ctx, segmentIDKey(segmentID), func(ctx context.Context) (*repository.Segment, error) {
		return r.SegmentRepository.GetByID(ctx, segmentID)
	})
}

func (r *CachedSegments) GetByName(ctx context.Context, name string) (*repository.Segment, error) {
	return r.lookup(ctx, segmentNameKey(name), func(ctx context.Context) (*repository.Segment, error) {
		return r.SegmentRepository.GetByName(ctx, name)
	})
}

// lookup comparte una sola carga entre los llamadores concurrentes de key.
// La carga corre sin la cancelación del primero; cada llamador deja de
// esperar cuando se cancela su propio ctx.
func (r *CachedSegments) lookup(ctx context.Context, key string, load func(context.Context) (*repository.Segment, error)) (*repository.Segment, error) {
	if raw, err := r.cache.Get(ctx, key); err == nil {
		var seg repository.Segment
		if json.Unmarshal([]byte(raw), &seg) == nil {
			return &seg, nil
		}
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan(key, func() (any, error) {
		seg, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		// Cache best-effort: un error de cache no afecta el lookup.
		if raw, mErr := json.Marshal(seg); mErr == nil {
			_ = r.cache.Set(loadCtx, segmentIDKey(seg.ID), string(raw), r.ttl)
			_ = r.cache.Set(loadCtx, segmentNameKey(seg.Name), string(raw), r.ttl)
		}
		return seg, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		seg := *(res.Val.(*repository.Segment))
		return &seg, nil
	}
}
