package schema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/reflectdb/dialect"
	rsql "github.com/syssam/reflectdb/dialect/sql"
)

func TestClauseResolvesPositionalPlaceholders(t *testing.T) {
	t.Run("sqlite uses question marks", func(t *testing.T) {
		text, args := Clause(dialect.SQLite, "slug = %1 AND status = %2", []any{"widget", 1})
		require.Equal(t, "slug = ? AND status = ?", text)
		require.Equal(t, []any{"widget", 1}, args)
	})

	t.Run("postgres numbers its placeholders", func(t *testing.T) {
		text, args := Clause(dialect.Postgres, "slug = %1 AND status = %2", []any{"widget", 1})
		require.Equal(t, `slug = $1 AND status = $2`, text)
		require.Equal(t, []any{"widget", 1}, args)
	})

	t.Run("empty template passes through untouched", func(t *testing.T) {
		text, args := Clause(dialect.SQLite, "", nil)
		require.Equal(t, "", text)
		require.Nil(t, args)
	})

	t.Run("out of range index is left literal", func(t *testing.T) {
		text, args := Clause(dialect.SQLite, "slug = %1 AND x = %9", []any{"widget"})
		require.Equal(t, "slug = ? AND x = %9", text)
		require.Equal(t, []any{"widget"}, args)
	})
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	drv := rsql.OpenDB(dialect.Postgres, db)
	return NewStore(drv, dialect.Postgres), mock
}

func TestStoreFetch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "widget" WHERE slug = \$1`).
		WithArgs("gadget").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).AddRow(1, "gadget"))

	rows, err := store.Fetch(context.Background(), "widget", "slug = %1", "gadget")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "gadget", rows[0]["slug"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreChooseReturnsNilWhenMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "widget" WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, err := store.Choose(context.Background(), "widget", int64(99))
	require.NoError(t, err)
	require.Nil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInsertPostgresUsesReturning(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "widget" \("name"\) VALUES \(\$1\) RETURNING id`).
		WithArgs("Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM "widget" WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(7, "Hello"))

	row, err := store.Insert(context.Background(), "widget", map[string]any{"name": "Hello"})
	require.NoError(t, err)
	require.Equal(t, "Hello", row["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInsertInlinesRawValues(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "widget" \("created_at"\) VALUES \(current_timestamp\) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "widget" WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	_, err := store.Insert(context.Background(), "widget", map[string]any{"created_at": Raw("current_timestamp")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateReturnsRowsAffected(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "widget" SET "name" = \$1 WHERE id = \$2`).
		WithArgs("Updated", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Update(context.Background(), "widget", map[string]any{"name": "Updated"}, "id = %1", int64(3))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "widget" WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Delete(context.Background(), "widget", "id = %1", int64(5))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeScannedConvertsBytesToString(t *testing.T) {
	require.Equal(t, "hello", normalizeScanned([]byte("hello")))
	require.Equal(t, int64(3), normalizeScanned(int64(3)))
	require.Nil(t, normalizeScanned(nil))
}
