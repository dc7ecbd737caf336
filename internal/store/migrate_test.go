package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	migrations "github.com/dropDatabas3/segmentation/migrations/postgres"
)

type fakeExecutor struct {
	applied map[int]bool
	stmts   []string
	failOn  string
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, args ...any) error {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return errors.New("syntax error")
	}
	f.stmts = append(f.stmts, sql)
	if strings.HasPrefix(sql, "INSERT INTO _migrations") {
		f.applied[args[0].(int)] = true
	}
	return nil
}

func (f *fakeExecutor) AppliedVersions(context.Context) (map[int]bool, error) {
	out := make(map[int]bool, len(f.applied))
	for k, v := range f.applied {
		out[k] = v
	}
	return out, nil
}

func TestMigrator_EmbeddedMigrationsParse(t *testing.T) {
	migs, err := NewMigrator(migrations.FS, migrations.Dir).ParseMigrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migs), 2)
	require.Equal(t, 1, migs[0].Version)
	require.Contains(t, migs[0].SQL, "user_segments")
}

func TestMigrator_RunSkipsApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_second.sql": {Data: []byte("CREATE TABLE b ();")},
		"sql/0001_first.sql":  {Data: []byte("CREATE TABLE a ();")},
		"sql/README.md":       {Data: []byte("ignored")},
	}
	exec := &fakeExecutor{applied: map[int]bool{}}
	m := NewMigrator(fsys, "sql")

	res, err := m.Run(context.Background(), exec)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, res.Applied)

	res, err = m.Run(context.Background(), exec)
	require.NoError(t, err)
	require.Empty(t, res.Applied)
	require.Equal(t, []int{1, 2}, res.Skipped)
}

func TestMigrator_RunStopsOnFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0001_ok.sql":   {Data: []byte("CREATE TABLE a ();")},
		"sql/0002_bad.sql":  {Data: []byte("CREATE TABEL b ();")},
		"sql/0003_next.sql": {Data: []byte("CREATE TABLE c ();")},
	}
	exec := &fakeExecutor{applied: map[int]bool{}, failOn: "TABEL"}

	res, err := NewMigrator(fsys, "sql").Run(context.Background(), exec)
	require.Error(t, err)
	require.Equal(t, []int{1}, res.Applied)
	require.NotNil(t, res.Failed)
	require.Equal(t, 2, *res.Failed)
}
