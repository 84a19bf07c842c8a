package schema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/reflectdb/dialect"
	rsql "github.com/syssam/reflectdb/dialect/sql"
)

func newMockMigrator(t *testing.T, dialectName string) (*Migrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	drv := rsql.OpenDB(dialectName, db)
	return NewMigrator(drv, dialectName), mock
}

func TestMigratorCreateTable(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.Postgres)

	mock.ExpectExec(`CREATE TABLE "widget" \("id" integer PRIMARY KEY, "title" varchar\(256\) NOT NULL\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.CreateTable(context.Background(), "widget", []ColumnSpec{
		{Name: "id", Type: SerialType(), PrimaryKey: true},
		{Name: "title", Type: StringType(256)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorAddColumn(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.Postgres)

	mock.ExpectExec(`ALTER TABLE "widget" ADD COLUMN "count" integer NOT NULL DEFAULT 0`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.AddColumn(context.Background(), "widget", ColumnSpec{Name: "count", Type: IntegerType(), Default: "0"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorRenameColumnMySQLUsesRenameSyntax(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.MySQL)

	mock.ExpectExec("ALTER TABLE `widget` RENAME COLUMN `old` TO `new`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.RenameColumn(context.Background(), "widget", "old", "new")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorRenameTableMySQLUsesRenameTable(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.MySQL)

	mock.ExpectExec("RENAME TABLE `old_slug` TO `new_slug`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.RenameTable(context.Background(), "old_slug", "new_slug")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorRenameTablePostgresUsesAlterTable(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.Postgres)

	mock.ExpectExec(`ALTER TABLE "old_slug" RENAME TO "new_slug"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.RenameTable(context.Background(), "old_slug", "new_slug")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorDropColumn(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.Postgres)

	mock.ExpectExec(`ALTER TABLE "widget" DROP COLUMN "legacy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.DropColumn(context.Background(), "widget", "legacy")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorDropTableIsIfExists(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.Postgres)

	mock.ExpectExec(`DROP TABLE IF EXISTS "widget"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := m.DropTable(context.Background(), "widget")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorTableExists(t *testing.T) {
	m, mock := newMockMigrator(t, dialect.SQLite)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = \?\)`).
		WithArgs("widget").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := m.TableExists(context.Background(), "widget")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorTableExistsUnsupportedDialect(t *testing.T) {
	m, _ := newMockMigrator(t, "oracle")
	_, err := m.TableExists(context.Background(), "widget")
	require.Error(t, err)
}
