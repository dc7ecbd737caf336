package memory

import (
	"context"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

type segmentRepo Store

func (r *segmentRepo) store() *Store { return (*Store)(r) }

func (r *segmentRepo) Exists(ctx context.Context, segmentID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.segments[segmentID]
	return ok, nil
}

func (r *segmentRepo) GetByID(ctx context.Context, segmentID int64) (*repository.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *seg
	return &cp, nil
}

func (r *segmentRepo) GetByName(ctx context.Context, name string) (*repository.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.segByName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.segments[id]
	return &cp, nil
}

func (r *segmentRepo) Create(ctx context.Context, name, description string) (*repository.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.segByName[name]; exists {
		return nil, repository.ErrConflict
	}
	now := s.now()
	s.nextSegmentID++
	seg := &repository.Segment{
		ID:          s.nextSegmentID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.segments[seg.ID] = seg
	s.segByName[name] = seg.ID
	cp := *seg
	return &cp, nil
}

func (r *segmentRepo) CountMembers(ctx context.Context, segmentID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for p := range s.pairs {
		if p.segmentID == segmentID {
			n++
		}
	}
	return n, nil
}
