package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// ─── SegmentRepository ───

type segmentRepo struct{ pool *pgxpool.Pool }

func (r *segmentRepo) get(ctx context.Context, where string, arg any) (*repository.Segment, error) {
	query := `SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM segments WHERE ` + where
	var s repository.Segment
	err := r.pool.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get segment: %w", err)
	}
	return &s, nil
}

func (r *segmentRepo) GetByID(ctx context.Context, segmentID int64) (*repository.Segment, error) {
	return r.get(ctx, "id = $1", segmentID)
}

func (r *segmentRepo) GetByName(ctx context.Context, name string) (*repository.Segment, error) {
	return r.get(ctx, "name = $1", name)
}

func (r *segmentRepo) Exists(ctx context.Context, segmentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM segments WHERE id = $1)`, segmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: segment exists: %w", err)
	}
	return exists, nil
}

func (r *segmentRepo) Create(ctx context.Context, name, description string) (*repository.Segment, error) {
	const query = `
		INSERT INTO segments (name, description) VALUES ($1, NULLIF($2, ''))
		RETURNING id, name, COALESCE(description, ''), created_at, updated_at
	`
	var s repository.Segment
	err := r.pool.QueryRow(ctx, query, name, description).Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create segment: %w", err)
	}
	return &s, nil
}

func (r *segmentRepo) CountMembers(ctx context.Context, segmentID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_segments WHERE segment_id = $1`, segmentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pg: count members: %w", err)
	}
	return n, nil
}
