package distribution

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// MembershipUpdater es el único componente que modifica la relación
// usuario↔segmento. Cada operación corre en una transacción del store.
type MembershipUpdater struct {
	repo repository.MembershipRepository
}

// NewMembershipUpdater crea un updater sobre repo.
func NewMembershipUpdater(repo repository.MembershipRepository) *MembershipUpdater {
	return &MembershipUpdater{repo: repo}
}

func requireUser(ctx context.Context, tx repository.MembershipTx, userID int64) error {
	ok, err := tx.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

func requireSegment(ctx context.Context, tx repository.MembershipTx, segmentID int64) error {
	ok, err := tx.SegmentExists(ctx, segmentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: segment %d", ErrNotFound, segmentID)
	}
	return nil
}

// Add agrega el usuario al segmento. Si ya era miembro retorna created=false
// sin error. ErrNotFound si falta alguno de los dos.
func (u *MembershipUpdater) Add(ctx context.Context, userID, segmentID int64) (created bool, err error) {
	err = u.repo.WithinTx(ctx, func(tx repository.MembershipTx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := requireSegment(ctx, tx, segmentID); err != nil {
			return err
		}
		created, err = tx.AddMembership(ctx, userID, segmentID)
		return err
	})
	if err != nil {
		return false, mapStoreErr(err)
	}
	return created, nil
}

// AddAll agrega todos los usuarios al segmento en una sola transacción y
// retorna cuántos pares se crearon. Si falla cualquiera, no se confirma ninguno.
func (u *MembershipUpdater) AddAll(ctx context.Context, segmentID int64, userIDs []int64) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var created int
	err := u.repo.WithinTx(ctx, func(tx repository.MembershipTx) error {
		created = 0
		if err := requireSegment(ctx, tx, segmentID); err != nil {
			return err
		}
		for _, id := range userIDs {
			ok, err := tx.AddMembership(ctx, id, segmentID)
			if err != nil {
				return fmt.Errorf("user %d: %w", id, err)
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return created, nil
}

// Remove quita al usuario del segmento. ErrNotFound si falta alguno de los
// dos; ErrConflict si el usuario no era miembro.
func (u *MembershipUpdater) Remove(ctx context.Context, userID, segmentID int64) error {
	err := u.repo.WithinTx(ctx, func(tx repository.MembershipTx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := requireSegment(ctx, tx, segmentID); err != nil {
			return err
		}
		if err := tx.RemoveMembership(ctx, userID, segmentID); err != nil {
			return fmt.Errorf("user %d not in segment %d: %w", userID, segmentID, err)
		}
		return nil
	})
	return mapStoreErr(err)
}
