package distribution

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/store/adapters/memory"
)

type fixture struct {
	store   *memory.Store
	segment *repository.Segment
}

// newFixture crea un store en memoria con n usuarios (IDs 1..n) y un segmento "target".
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	in := make([]repository.CreateUserInput, n)
	for i := range in {
		in[i] = repository.CreateUserInput{
			Login:     fmt.Sprintf("user%04d", i+1),
			Email:     fmt.Sprintf("user%04d@example.com", i+1),
			IPAddress: fmt.Sprintf("10.0.%d.%d", (i+1)/256, (i+1)%256),
		}
	}
	_, err := s.Users().CreateBatch(ctx, in)
	require.NoError(t, err)

	seg, err := s.Segments().Create(ctx, "target", "")
	require.NoError(t, err)
	return &fixture{store: s, segment: seg}
}

func (f *fixture) repos() Repositories {
	return Repositories{
		Users:       f.store.Users(),
		Segments:    f.store.Segments(),
		Memberships: f.store.Memberships(),
		Filters:     f.store.Filters(),
	}
}

func (f *fixture) engine(opts Options) *Engine {
	return New(f.repos(), opts)
}

// addMembers agrega directamente los usuarios dados al segmento.
func (f *fixture) addMembers(t *testing.T, ids ...int64) {
	t.Helper()
	n, err := NewMembershipUpdater(f.store.Memberships()).AddAll(context.Background(), f.segment.ID, ids)
	require.NoError(t, err)
	require.Equal(t, len(ids), n)
}

func seedPtr(v uint64) *uint64 { return &v }
