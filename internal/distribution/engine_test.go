package distribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/segmentation/internal/cache"
	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

func TestDistributeRandom_TenPercentOfThousand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	e := f.engine(Options{Workers: 4, PageSize: 100})

	res, err := e.DistributeRandom(ctx, "target", 10)
	require.NoError(t, err)
	require.EqualValues(t, 1000, res.Total)
	require.EqualValues(t, 100, res.Quota)
	require.Equal(t, 10, res.Pages)
	require.GreaterOrEqual(t, res.Assigned, int64(90))
	require.LessOrEqual(t, res.Assigned, int64(110))
	require.NotEmpty(t, res.RunID)

	members := f.store.Members(f.segment.ID)
	require.Len(t, members, int(res.Assigned))
}

func TestDistributeRandom_BoundsAndOnlyNonMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	pre := make([]int64, 0, 50)
	for id := int64(1); id <= 50; id++ {
		pre = append(pre, id)
	}
	f.addMembers(t, pre...)

	e := f.engine(Options{Workers: 8})
	for _, p := range []float64{0, 0.5, 3.3, 10, 27.5} {
		before := len(f.store.Members(f.segment.ID))
		res, err := e.DistributeRandom(ctx, "target", p)
		require.NoError(t, err)

		bound := int64(math.Floor(1000 * p / 100))
		require.GreaterOrEqual(t, res.Assigned, int64(0))
		require.LessOrEqual(t, res.Assigned, bound, "p=%v", p)
		require.Len(t, f.store.Members(f.segment.ID), before+int(res.Assigned))
	}

	// Los miembros previos siguen ahí y no hay pares duplicados.
	members := f.store.Members(f.segment.ID)
	seen := map[int64]bool{}
	for _, id := range members {
		require.False(t, seen[id])
		seen[id] = true
	}
	for _, id := range pre {
		require.True(t, seen[id])
	}
	count, err := f.store.Segments().CountMembers(ctx, f.segment.ID)
	require.NoError(t, err)
	require.EqualValues(t, len(members), count)
}

func TestDistributeRandom_FullPercentAssignsEveryEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 230)
	f.addMembers(t, 3, 101, 229)

	res, err := f.engine(Options{Workers: 3}).DistributeRandom(ctx, "target", 100)
	require.NoError(t, err)
	require.EqualValues(t, 230, res.Quota)
	require.EqualValues(t, 227, res.Assigned)
	require.Len(t, f.store.Members(f.segment.ID), 230)
}

func TestDistributeRandom_ZeroQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	res, err := f.engine(Options{}).DistributeRandom(ctx, "target", 10)
	require.NoError(t, err)
	require.Zero(t, res.Quota)
	require.Zero(t, res.Pages)
	require.Zero(t, res.Assigned)
	require.Empty(t, f.store.Members(f.segment.ID))
}

func TestDistributeRandom_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	e := f.engine(Options{})

	for _, p := range []float64{-1, 100.01, math.NaN(), math.Inf(1)} {
		_, err := e.DistributeRandom(ctx, "target", p)
		require.ErrorIs(t, err, ErrInvalidArgument, "p=%v", p)
	}

	_, err := e.DistributeRandom(ctx, "nope", 10)
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestDistributeRandom_DeterministicAcrossPoolSizes(t *testing.T) {
	ctx := context.Background()
	run := func(workers int) []int64 {
		f := newFixture(t, 1000)
		f.addMembers(t, 5, 250, 251, 999)
		e := f.engine(Options{Pool: NewPool(workers), PageSize: 64, Seed: seedPtr(20240611)})
		_, err := e.DistributeRandom(ctx, "target", 17)
		require.NoError(t, err)
		return f.store.Members(f.segment.ID)
	}

	single := run(1)
	require.Equal(t, single, run(8))
	require.Equal(t, single, run(1000))
}

func TestDistributeRandom_BestEffortCollectsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	injected := errors.New("disk full")
	// Falla la página 3 (usuarios 301..400).
	f.store.SetAddHook(func(_ context.Context, userID, _ int64) error {
		if userID > 300 && userID <= 400 {
			return injected
		}
		return nil
	})

	e := f.engine(Options{Workers: 4, FailurePolicy: BestEffort})
	res, err := e.DistributeRandom(ctx, "target", 10)
	require.Error(t, err)
	require.ErrorIs(t, err, injected)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.False(t, runErr.Aborted)
	require.Len(t, runErr.Failures, 1)
	require.Equal(t, 3, runErr.Failures[0].Page)

	require.NotNil(t, res)
	require.EqualValues(t, 90, res.Assigned)
	require.EqualValues(t, 90, runErr.Assigned)
	require.Len(t, f.store.Members(f.segment.ID), 90)
	for _, id := range f.store.Members(f.segment.ID) {
		assert.False(t, id > 300 && id <= 400, "page 3 must be rolled back")
	}
}

func TestDistributeRandom_FailFastSkipsRemainingPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)
	injected := errors.New("disk full")
	f.store.SetAddHook(func(_ context.Context, userID, _ int64) error {
		if userID <= 100 {
			return injected
		}
		return nil
	})

	e := f.engine(Options{Pool: NewPool(1), FailurePolicy: FailFast})
	res, err := e.DistributeRandom(ctx, "target", 10)
	require.ErrorIs(t, err, injected)
	require.False(t, errors.Is(err, ErrExecutionAborted))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, FailFast, runErr.Policy)
	require.Len(t, runErr.Failures, 1)

	require.Zero(t, res.Assigned)
	require.Equal(t, 9, res.Skipped)
	require.Empty(t, f.store.Members(f.segment.ID))
}

func TestDistributeRandom_Cancelled(t *testing.T) {
	f := newFixture(t, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancelar durante la primera escritura: esa página se descarta y el resto no arranca.
	f.store.SetAddHook(func(context.Context, int64, int64) error {
		cancel()
		return nil
	})

	res, err := f.engine(Options{Pool: NewPool(1)}).DistributeRandom(ctx, "target", 50)
	require.ErrorIs(t, err, ErrExecutionAborted)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Less(t, res.Assigned, res.Quota)
	require.Len(t, f.store.Members(f.segment.ID), int(res.Assigned))
}

func TestDistributeRandom_SegmentLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)
	locks := cache.NewMemory("", 0)
	e := f.engine(Options{Locks: locks, LockTTL: time.Minute})

	key := fmt.Sprintf("lock:distribution:segment:%d", f.segment.ID)
	ok, err := locks.SetNX(ctx, key, "other-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.DistributeRandom(ctx, "target", 10)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, locks.Delete(ctx, key))
	res, err := e.DistributeRandom(ctx, "target", 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, res.Assigned)

	held, err := locks.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, held, "lock is released after the run")
}

func TestEngine_ExpiredLockReleaseKeepsNextOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	locks := cache.NewMemory("", 0)
	e := f.engine(Options{Locks: locks, LockTTL: 20 * time.Millisecond})
	key := fmt.Sprintf("lock:distribution:segment:%d", f.segment.ID)

	releaseA, err := e.lockSegment(ctx, f.segment.ID, "run-a")
	require.NoError(t, err)

	// run-a se pasa del TTL y run-b toma el lock.
	time.Sleep(50 * time.Millisecond)
	ok, err := locks.SetNX(ctx, key, "run-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	releaseA()
	owner, err := locks.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "run-b", owner)

	_, err = e.DistributeRandom(ctx, "target", 10)
	require.ErrorIs(t, err, ErrConflict)
}

func seedAdmins(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.store.Users().CreateBatch(context.Background(), []repository.CreateUserInput{
		{Login: "root1", Email: "admin@corp.com"},
		{Login: "root2", Email: "admin.ops@corp.com"},
		{Login: "root3", Email: "administrator@corp.com"},
		{Login: "root4", Email: "admin-1@corp.com"},
		{Login: "root5", Email: "admin_x@corp.com"},
		{Login: "decoy1", Email: "admin@corp.com.ar"},
		{Login: "decoy2", Email: "sysadmin@corp.com"},
	})
	require.NoError(t, err)
}

func TestDistributeByPattern_EmailPattern(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 193)
	seedAdmins(t, f)
	e := f.engine(Options{Workers: 4})

	req := PatternRequest{SegmentID: f.segment.ID, Kind: repository.FilterEmailPattern, Pattern: `^admin.*@corp\.com$`}
	res, err := e.DistributeByPattern(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 5, res.Matched)
	require.Equal(t, 5, res.Selected)
	require.EqualValues(t, 5, res.Assigned)
	require.NotZero(t, res.FilterID)

	filters, err := f.store.Filters().ListBySegment(ctx, f.segment.ID)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.Equal(t, repository.FilterEmailPattern, filters[0].Kind)
	require.Equal(t, `^admin.*@corp\.com$`, filters[0].Expression)
	require.Nil(t, filters[0].Percentage)

	members := f.store.Members(f.segment.ID)
	require.Len(t, members, 5)

	// Repetir no agrega nada nuevo.
	res, err = e.DistributeByPattern(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 5, res.Matched)
	require.Zero(t, res.Assigned)
	require.Equal(t, members, f.store.Members(f.segment.ID))
}

func TestDistributeByPattern_LoginAndIP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 300)
	e := f.engine(Options{})

	res, err := e.DistributeByPattern(ctx, PatternRequest{SegmentID: f.segment.ID, Kind: repository.FilterLoginPattern, Pattern: `^user000[1-3]$`})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Assigned)

	res, err = e.DistributeByPattern(ctx, PatternRequest{SegmentID: f.segment.ID, Kind: repository.FilterIPPattern, Pattern: `^10\.0\.1\.`})
	require.NoError(t, err)
	require.Equal(t, 45, res.Matched) // usuarios 256..300
	require.EqualValues(t, 45, res.Assigned)
}

func TestDistributeByPattern_Percentage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	seedAdmins(t, f)
	e := f.engine(Options{Seed: seedPtr(1)})

	pct := 40.0
	res, err := e.DistributeByPattern(ctx, PatternRequest{
		SegmentID: f.segment.ID, Kind: repository.FilterEmailPattern, Pattern: `^admin.*@corp\.com$`, Percentage: &pct,
	})
	require.NoError(t, err)
	require.Equal(t, 5, res.Matched)
	require.Equal(t, 2, res.Selected)
	require.EqualValues(t, 2, res.Assigned)

	filters, _ := f.store.Filters().ListBySegment(ctx, f.segment.ID)
	require.Len(t, filters, 1)
	require.NotNil(t, filters[0].Percentage)
	require.InDelta(t, 40.0, *filters[0].Percentage, 0)
}

func TestDistributeByPattern_NoMatchStillRecordsFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	e := f.engine(Options{})

	res, err := e.DistributeByPattern(ctx, PatternRequest{SegmentID: f.segment.ID, Kind: repository.FilterLoginPattern, Pattern: `^nobody$`})
	require.NoError(t, err)
	require.Zero(t, res.Matched)
	require.Zero(t, res.Assigned)

	filters, _ := f.store.Filters().ListBySegment(ctx, f.segment.ID)
	require.Len(t, filters, 1)
}

func TestDistributeByPattern_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	e := f.engine(Options{})
	bad := 120.0

	cases := []PatternRequest{
		{SegmentID: f.segment.ID, Kind: "phone-pattern", Pattern: ".*"},
		{SegmentID: f.segment.ID, Kind: repository.FilterEmailPattern, Pattern: ""},
		{SegmentID: f.segment.ID, Kind: repository.FilterEmailPattern, Pattern: ".*", Percentage: &bad},
	}
	for _, req := range cases {
		_, err := e.DistributeByPattern(ctx, req)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}

	_, err := e.DistributeByPattern(ctx, PatternRequest{SegmentID: 404, Kind: repository.FilterEmailPattern, Pattern: ".*"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.DistributeByPattern(ctx, PatternRequest{SegmentID: f.segment.ID, Kind: repository.FilterEmailPattern, Pattern: "(unclosed"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	filters, _ := f.store.Filters().ListBySegment(ctx, f.segment.ID)
	require.Len(t, filters, 1, "only the request that reached the store is recorded")
}

func TestDistributeByPattern_WhitespacePatternIsARegex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	_, err := f.store.Users().CreateBatch(ctx, []repository.CreateUserInput{
		{Login: "john doe", Email: "jd@example.com"},
	})
	require.NoError(t, err)

	res, err := f.engine(Options{}).DistributeByPattern(ctx, PatternRequest{
		SegmentID: f.segment.ID, Kind: repository.FilterLoginPattern, Pattern: " ",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.EqualValues(t, 1, res.Assigned)
	require.Equal(t, []int64{11}, f.store.Members(f.segment.ID))
}

func TestDistributeByPattern_FailFastPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	injected := errors.New("timeout")
	f.store.SetAddHook(func(_ context.Context, userID, _ int64) error {
		if userID == 1 {
			return injected
		}
		return nil
	})

	res, err := f.engine(Options{Pool: NewPool(1), FailurePolicy: FailFast}).DistributeByPattern(ctx, PatternRequest{
		SegmentID: f.segment.ID, Kind: repository.FilterLoginPattern, Pattern: `^user000\d$`,
	})
	require.ErrorIs(t, err, injected)
	require.False(t, errors.Is(err, ErrExecutionAborted))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, FailFast, runErr.Policy)
	require.Len(t, runErr.Failures, 1)
	require.EqualValues(t, 1, runErr.Failures[0].UserID)

	require.Equal(t, 9, res.Matched)
	require.Zero(t, res.Assigned)
	require.Equal(t, 8, res.Skipped)
	require.Empty(t, f.store.Members(f.segment.ID))
}

func TestDistributeByPattern_BestEffortPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	injected := errors.New("timeout")
	f.store.SetAddHook(func(_ context.Context, userID, _ int64) error {
		if userID == 7 {
			return injected
		}
		return nil
	})

	res, err := f.engine(Options{Workers: 4}).DistributeByPattern(ctx, PatternRequest{
		SegmentID: f.segment.ID, Kind: repository.FilterLoginPattern, Pattern: `^user000\d$`,
	})
	require.ErrorIs(t, err, injected)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	require.EqualValues(t, 7, runErr.Failures[0].UserID)
	require.Equal(t, -1, runErr.Failures[0].Page)

	require.Equal(t, 9, res.Matched)
	require.EqualValues(t, 8, res.Assigned)
	require.Len(t, f.store.Members(f.segment.ID), 8)
}

func TestEngine_AddRemoveMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	e := f.engine(Options{})

	created, err := e.AddMember(ctx, 1, f.segment.ID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = e.AddMember(ctx, 1, f.segment.ID)
	require.NoError(t, err)
	require.False(t, created)

	require.ErrorIs(t, e.RemoveMember(ctx, 2, f.segment.ID), ErrConflict)
	require.NoError(t, e.RemoveMember(ctx, 1, f.segment.ID))
	require.Empty(t, f.store.Members(f.segment.ID))
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("fail-fast")
	require.NoError(t, err)
	require.Equal(t, FailFast, p)

	p, err = ParseFailurePolicy("")
	require.NoError(t, err)
	require.Equal(t, BestEffort, p)

	_, err = ParseFailurePolicy("yolo")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
