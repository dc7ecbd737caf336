package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// ─── MembershipRepository ───

type membershipRepo struct{ pool *pgxpool.Pool }

func (r *membershipRepo) WithinTx(ctx context.Context, fn func(tx repository.MembershipTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&membershipTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

func (r *membershipRepo) IsMember(ctx context.Context, userID, segmentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_segments WHERE user_id = $1 AND segment_id = $2)`,
		userID, segmentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: is member: %w", err)
	}
	return exists, nil
}

// membershipTx implementa repository.MembershipTx sobre una pgx.Tx.
type membershipTx struct{ tx pgx.Tx }

// rowLocked consulta la fila con FOR KEY SHARE: impide que se borre mientras dure la tx.
func (t *membershipTx) rowLocked(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRow(ctx, query, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *membershipTx) UserExists(ctx context.Context, userID int64) (bool, error) {
	ok, err := t.rowLocked(ctx, `SELECT 1 FROM users WHERE id = $1 FOR KEY SHARE`, userID)
	if err != nil {
		return false, fmt.Errorf("pg: user exists: %w", err)
	}
	return ok, nil
}

func (t *membershipTx) SegmentExists(ctx context.Context, segmentID int64) (bool, error) {
	ok, err := t.rowLocked(ctx, `SELECT 1 FROM segments WHERE id = $1 FOR KEY SHARE`, segmentID)
	if err != nil {
		return false, fmt.Errorf("pg: segment exists: %w", err)
	}
	return ok, nil
}

func (t *membershipTx) AddMembership(ctx context.Context, userID, segmentID int64) (bool, error) {
	const query = `
		INSERT INTO user_segments (user_id, segment_id) VALUES ($1, $2)
		ON CONFLICT (user_id, segment_id) DO NOTHING
	`
	tag, err := t.tx.Exec(ctx, query, userID, segmentID)
	if err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("pg: add membership: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *membershipTx) RemoveMembership(ctx context.Context, userID, segmentID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM user_segments WHERE user_id = $1 AND segment_id = $2`, userID, segmentID)
	if err != nil {
		return fmt.Errorf("pg: remove membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}
