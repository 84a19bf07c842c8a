package reflectdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotFoundErrorMatchesSentinel(t *testing.T) {
	err := NewNotFoundErrorWithID("widget", int64(7))
	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, IsNotFound(err))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "widget", nf.Label())
	require.Equal(t, int64(7), nf.ID())
}

func TestNotSingularErrorCount(t *testing.T) {
	err := NewNotSingularErrorWithCount("field 3.parent", 2)
	require.True(t, errors.Is(err, ErrNotSingular))
	require.True(t, IsNotSingular(err))

	var ns *NotSingularError
	require.True(t, errors.As(err, &ns))
	require.Equal(t, 2, ns.Count())
}

func TestConstraintErrorUnwraps(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := NewConstraintError("widget: unique constraint", cause)
	require.True(t, IsConstraintError(err))
	require.ErrorIs(t, err, cause)
}

func TestQueryAndMutationErrorsUnwrap(t *testing.T) {
	cause := errors.New("no such table")
	qerr := NewQueryError("widget", "choose", cause)
	require.True(t, IsQueryError(qerr))
	require.ErrorIs(t, qerr, cause)

	merr := NewMutationError("widget", "create", cause)
	require.True(t, IsMutationError(merr))
	require.ErrorIs(t, merr, cause)
}

func TestAggregateErrorCollapsesToSingle(t *testing.T) {
	require.Nil(t, NewAggregateError())
	require.Nil(t, NewAggregateError(nil, nil))

	only := errors.New("only")
	require.Equal(t, only, NewAggregateError(only))

	a, b := errors.New("a"), errors.New("b")
	agg := NewAggregateError(a, b)
	var ae *AggregateError
	require.True(t, errors.As(agg, &ae))
	require.Equal(t, []error{a, b}, ae.Errors)
}

func TestRollbackErrorWrapsOriginal(t *testing.T) {
	cause := errors.New("disk full")
	err := &RollbackError{Err: cause}
	require.ErrorIs(t, err, cause)
}

func TestValidationErrorUnwraps(t *testing.T) {
	cause := errors.New("required")
	err := NewValidationError("slug", cause)
	require.True(t, IsValidationError(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "slug", err.Name)
}
