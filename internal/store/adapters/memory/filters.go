package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

type filterRepo Store

func (r *filterRepo) store() *Store { return (*Store)(r) }

func (r *filterRepo) Save(ctx context.Context, input repository.FilterInput) (*repository.Filter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[input.SegmentID]; !ok {
		return nil, repository.ErrNotFound
	}
	s.nextFilterID++
	f := repository.Filter{
		ID:         s.nextFilterID,
		SegmentID:  input.SegmentID,
		Kind:       input.Kind,
		Expression: input.Expression,
		Percentage: input.Percentage,
		CreatedAt:  s.now(),
	}
	s.filters = append(s.filters, f)
	return &f, nil
}

func (r *filterRepo) ListBySegment(ctx context.Context, segmentID int64) ([]repository.Filter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.Filter
	for _, f := range s.filters {
		if f.SegmentID == segmentID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
