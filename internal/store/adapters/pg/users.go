package pg

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// ─── UserRepository ───

type userRepo struct{ pool *pgxpool.Pool }

// userColumns selecciona el usuario junto con su conjunto de segmentos.
// La subconsulta "u" define qué usuarios entran; el join agrega la vista de membresías.
const userColumns = `
	u.id, u.login, u.email, COALESCE(host(u.ip_address), ''), u.created_at, u.updated_at,
	COALESCE(array_agg(us.segment_id ORDER BY us.segment_id) FILTER (WHERE us.segment_id IS NOT NULL), '{}')
`

const userGroupBy = `GROUP BY u.id, u.login, u.email, u.ip_address, u.created_at, u.updated_at`

func scanUsers(rows pgx.Rows) ([]repository.User, error) {
	defer rows.Close()

	var users []repository.User
	for rows.Next() {
		var u repository.User
		if err := rows.Scan(&u.ID, &u.Login, &u.Email, &u.IPAddress, &u.CreatedAt, &u.UpdatedAt, &u.SegmentIDs); err != nil {
			return nil, fmt.Errorf("pg: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pg: count users: %w", err)
	}
	return n, nil
}

func (r *userRepo) ListPage(ctx context.Context, offset, limit int) ([]repository.User, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + userColumns + `
		FROM (SELECT * FROM users ORDER BY id LIMIT $1 OFFSET $2) u
		LEFT JOIN user_segments us ON us.user_id = u.id
		` + userGroupBy + `
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pg: list users page: %w", err)
	}
	return scanUsers(rows)
}

// patternColumn retorna la expresión SQL del atributo a evaluar.
// Para IP se usa host() para comparar solo la dirección, sin máscara.
func patternColumn(kind repository.FilterKind) (string, bool) {
	switch kind {
	case repository.FilterEmailPattern:
		return "u.email", true
	case repository.FilterLoginPattern:
		return "u.login", true
	case repository.FilterIPPattern:
		return "host(u.ip_address)", true
	}
	return "", false
}

func (r *userRepo) FindByPattern(ctx context.Context, kind repository.FilterKind, pattern string) ([]repository.User, error) {
	col, ok := patternColumn(kind)
	if !ok {
		return nil, fmt.Errorf("pg: unknown filter kind %q: %w", kind, repository.ErrInvalidInput)
	}
	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_segments us ON us.user_id = u.id
		WHERE ` + col + ` ~ $1
		` + userGroupBy + `
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, pattern)
	if err != nil {
		if pgErrCode(err) == codeInvalidRegexp {
			return nil, fmt.Errorf("pg: find by pattern: %w", repository.ErrInvalidInput)
		}
		return nil, fmt.Errorf("pg: find by pattern: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil && pgErrCode(err) == codeInvalidRegexp {
		return nil, fmt.Errorf("pg: find by pattern: %w", repository.ErrInvalidInput)
	}
	return users, err
}

func (r *userRepo) GetByID(ctx context.Context, userID int64) (*repository.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_segments us ON us.user_id = u.id
		WHERE u.id = $1
		` + userGroupBy

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pg: get user by id: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, repository.ErrNotFound
	}
	return &users[0], nil
}

// CreateBatch inserta usuarios con COPY. Pensado para poblar entornos de prueba.
func (r *userRepo) CreateBatch(ctx context.Context, input []repository.CreateUserInput) (int64, error) {
	if len(input) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(input))
	for _, in := range input {
		var ip any
		if in.IPAddress != "" {
			addr, err := netip.ParseAddr(in.IPAddress)
			if err != nil {
				return 0, fmt.Errorf("pg: user %q ip %q: %w", in.Login, in.IPAddress, repository.ErrInvalidInput)
			}
			ip = addr
		}
		rows = append(rows, []any{in.Login, in.Email, ip})
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"users"},
		[]string{"login", "email", "ip_address"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return 0, fmt.Errorf("pg: copy users: %w", repository.ErrConflict)
		}
		return 0, fmt.Errorf("pg: copy users: %w", err)
	}
	return n, nil
}
