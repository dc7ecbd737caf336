package memory

import (
	"context"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

type membershipRepo Store

func (r *membershipRepo) store() *Store { return (*Store)(r) }

// WithinTx toma el lock de escritura durante toda la transacción.
// Si fn falla, las escrituras hechas se deshacen en orden inverso.
func (r *membershipRepo) WithinTx(ctx context.Context, fn func(tx repository.MembershipTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.done = true
	return nil
}

func (r *membershipRepo) IsMember(ctx context.Context, userID, segmentID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pairs[pair{userID: userID, segmentID: segmentID}]
	return ok, nil
}

// memoryTx opera con el lock de escritura del Store ya tomado.
type memoryTx struct {
	s    *Store
	undo []func()
	done bool
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
}

func (t *memoryTx) UserExists(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := t.s.users[userID]
	return ok, nil
}

func (t *memoryTx) SegmentExists(ctx context.Context, segmentID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := t.s.segments[segmentID]
	return ok, nil
}

func (t *memoryTx) AddMembership(ctx context.Context, userID, segmentID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := t.s.users[userID]; !ok {
		return false, repository.ErrNotFound
	}
	if _, ok := t.s.segments[segmentID]; !ok {
		return false, repository.ErrNotFound
	}
	if t.s.addHook != nil {
		if err := t.s.addHook(ctx, userID, segmentID); err != nil {
			return false, err
		}
	}
	p := pair{userID: userID, segmentID: segmentID}
	if !t.s.addPair(p) {
		return false, nil
	}
	t.undo = append(t.undo, func() { t.s.removePair(p) })
	return true, nil
}

func (t *memoryTx) RemoveMembership(ctx context.Context, userID, segmentID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := pair{userID: userID, segmentID: segmentID}
	at, ok := t.s.pairs[p]
	if !ok {
		return repository.ErrConflict
	}
	t.s.removePair(p)
	t.undo = append(t.undo, func() {
		t.s.addPair(p)
		t.s.pairs[p] = at
	})
	return nil
}
