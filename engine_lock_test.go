package reflectdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syssam/reflectdb/dialect"
)

func TestWithSlugLockIsReentrant(t *testing.T) {
	eng, ctx := newTestEngine(t)

	var ran bool
	err := eng.withSlugLock(ctx, "widget", func(ctx context.Context) error {
		return eng.withSlugLock(ctx, "widget", func(ctx context.Context) error {
			ran = true
			return nil
		})
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestAcquireSlugLockTimesOutOnContention(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.config.Lock.AcquireTimeout = 20 * time.Millisecond

	mu := eng.slugMutex("widget")
	mu.Lock()
	defer mu.Unlock()

	err := eng.acquireSlugLock(context.Background(), mu, "widget")
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
}

func TestAcquireSlugLockSucceedsWhenUncontended(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.config.Lock.AcquireTimeout = time.Second

	mu := eng.slugMutex("widget")
	err := eng.acquireSlugLock(context.Background(), mu, "widget")
	require.NoError(t, err)
	mu.Unlock()
}

func TestWithTxPropagatesInnerErrorAfterRollback(t *testing.T) {
	eng, ctx := newTestEngine(t)

	causeErr := errors.New("write failed")
	err := eng.withTx(ctx, func(ctx context.Context, _ dialect.ExecQuerier) error {
		return causeErr
	})
	require.ErrorIs(t, err, causeErr)
}

func TestUpdateAndDestroyReportNotFoundNotMissingModel(t *testing.T) {
	eng, ctx := newTestEngine(t)

	_, err := eng.Update(ctx, modelTableSlug, 999999, map[string]any{"name": "ghost"})
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.False(t, IsMissingModel(err))

	_, err = eng.Destroy(ctx, modelTableSlug, 999999)
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.False(t, IsMissingModel(err))
}

func TestRallyUsesConfiguredPagingDefaults(t *testing.T) {
	eng, ctx := newTestEngine(t)
	eng.config.Rally.Limit = 1

	rows, err := eng.Rally(ctx, fieldTableSlug, Options{})
	require.NoError(t, err)
	require.LessOrEqual(t, len(rows), 1)
}
