package memory

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

type userRepo Store

func (r *userRepo) store() *Store { return (*Store)(r) }

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.userOrder)), nil
}

func (r *userRepo) ListPage(ctx context.Context, offset, limit int) ([]repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(s.userOrder) {
		return nil, nil
	}
	end := min(offset+limit, len(s.userOrder))

	out := make([]repository.User, 0, end-offset)
	for _, id := range s.userOrder[offset:end] {
		out = append(out, s.snapshotUser(s.users[id]))
	}
	return out, nil
}

func attribute(u repository.User, kind repository.FilterKind) (string, bool) {
	switch kind {
	case repository.FilterEmailPattern:
		return u.Email, true
	case repository.FilterLoginPattern:
		return u.Login, true
	case repository.FilterIPPattern:
		return u.IPAddress, true
	}
	return "", false
}

func (r *userRepo) FindByPattern(ctx context.Context, kind repository.FilterKind, pattern string) ([]repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("memory: unknown filter kind %q: %w", kind, repository.ErrInvalidInput)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("memory: compile pattern: %v: %w", err, repository.ErrInvalidInput)
	}

	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.User
	for _, id := range s.userOrder {
		row := s.users[id]
		if v, _ := attribute(row.User, kind); v != "" && re.MatchString(v) {
			out = append(out, s.snapshotUser(row))
		}
	}
	return out, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID int64) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.snapshotUser(row)
	return &u, nil
}

func (r *userRepo) CreateBatch(ctx context.Context, input []repository.CreateUserInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validar unicidad antes de insertar: el lote entra completo o no entra.
	logins := make(map[string]bool, len(input))
	emails := make(map[string]bool, len(input))
	for _, row := range s.users {
		logins[row.Login] = true
		emails[row.Email] = true
	}
	for _, in := range input {
		if logins[in.Login] || emails[in.Email] {
			return 0, fmt.Errorf("memory: user %q: %w", in.Login, repository.ErrConflict)
		}
		logins[in.Login] = true
		emails[in.Email] = true
	}

	now := s.now()
	for _, in := range input {
		s.nextUserID++
		s.users[s.nextUserID] = &userRow{User: repository.User{
			ID:        s.nextUserID,
			Login:     in.Login,
			Email:     in.Email,
			IPAddress: in.IPAddress,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		s.userOrder = append(s.userOrder, s.nextUserID)
	}
	return int64(len(input)), nil
}
