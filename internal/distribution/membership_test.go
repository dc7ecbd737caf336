package distribution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMembershipUpdater_AddTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	u := NewMembershipUpdater(f.store.Memberships())

	created, err := u.Add(ctx, 1, f.segment.ID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = u.Add(ctx, 1, f.segment.ID)
	require.NoError(t, err)
	require.False(t, created)

	require.Equal(t, []int64{1}, f.store.Members(f.segment.ID))
	require.Equal(t, 1, f.store.PairCount())
}

func TestMembershipUpdater_AddMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	u := NewMembershipUpdater(f.store.Memberships())

	_, err := u.Add(ctx, 99, f.segment.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = u.Add(ctx, 1, 99)
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, f.store.PairCount())
}

func TestMembershipUpdater_RemoveNonMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	u := NewMembershipUpdater(f.store.Memberships())
	f.addMembers(t, 2)

	err := u.Remove(ctx, 1, f.segment.ID)
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, []int64{2}, f.store.Members(f.segment.ID))

	require.NoError(t, u.Remove(ctx, 2, f.segment.ID))
	require.Empty(t, f.store.Members(f.segment.ID))

	require.ErrorIs(t, u.Remove(ctx, 42, f.segment.ID), ErrNotFound)
}

func TestMembershipUpdater_AddAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	u := NewMembershipUpdater(f.store.Memberships())
	f.addMembers(t, 1)

	n, err := u.AddAll(ctx, f.segment.ID, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	injected := errors.New("write failed")
	f.store.SetAddHook(func(_ context.Context, userID, _ int64) error {
		if userID == 5 {
			return injected
		}
		return nil
	})
	n, err = u.AddAll(ctx, f.segment.ID, []int64{4, 5})
	require.ErrorIs(t, err, injected)
	require.Zero(t, n)
	require.Equal(t, []int64{1, 2, 3}, f.store.Members(f.segment.ID))

	_, err = u.AddAll(ctx, f.segment.ID, []int64{4, 77})
	require.ErrorIs(t, err, ErrNotFound)
}
