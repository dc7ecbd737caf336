package distribution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

func TestMapStoreErr(t *testing.T) {
	require.Nil(t, mapStoreErr(nil))
	require.ErrorIs(t, mapStoreErr(repository.ErrNotFound), ErrNotFound)
	require.ErrorIs(t, mapStoreErr(repository.ErrConflict), ErrConflict)
	require.ErrorIs(t, mapStoreErr(repository.ErrInvalidInput), ErrInvalidArgument)

	own := ErrConflict
	require.Same(t, own, mapStoreErr(own))

	other := errors.New("io")
	require.Equal(t, other, mapStoreErr(other))
}

func TestRunError_Unwrap(t *testing.T) {
	err := &RunError{
		RunID:    "r1",
		Aborted:  true,
		Assigned: 3,
		Failures: []TaskFailure{{Page: 2, Err: ErrNotFound}},
		cause:    context.Canceled,
	}
	require.ErrorIs(t, err, ErrExecutionAborted)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "run r1 aborted")
	require.Contains(t, err.Error(), "page 2")

	var tf TaskFailure
	require.ErrorAs(t, err, &tf)
	require.Equal(t, 2, tf.Page)
}
