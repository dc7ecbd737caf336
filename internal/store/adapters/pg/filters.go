package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// ─── FilterRepository ───

type filterRepo struct{ pool *pgxpool.Pool }

func (r *filterRepo) Save(ctx context.Context, input repository.FilterInput) (*repository.Filter, error) {
	const query = `
		INSERT INTO filters (segment_id, filter_type, filter_expression, user_percentage)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	f := repository.Filter{
		SegmentID:  input.SegmentID,
		Kind:       input.Kind,
		Expression: input.Expression,
		Percentage: input.Percentage,
	}
	err := r.pool.QueryRow(ctx, query, input.SegmentID, string(input.Kind), input.Expression, input.Percentage).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: save filter: %w", err)
	}
	return &f, nil
}

func (r *filterRepo) ListBySegment(ctx context.Context, segmentID int64) ([]repository.Filter, error) {
	const query = `
		SELECT id, segment_id, filter_type, filter_expression, user_percentage, created_at
		FROM filters WHERE segment_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, segmentID)
	if err != nil {
		return nil, fmt.Errorf("pg: list filters: %w", err)
	}
	defer rows.Close()

	var out []repository.Filter
	for rows.Next() {
		var f repository.Filter
		var kind string
		if err := rows.Scan(&f.ID, &f.SegmentID, &kind, &f.Expression, &f.Percentage, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan filter: %w", err)
		}
		f.Kind = repository.FilterKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}
