package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/reflectdb/dialect"
	"github.com/syssam/reflectdb/dialect/sql"
)

// Migrator is the DDL half of the SQL collaborator:
// create_table, add_column, rename_column, drop_column, rename_table,
// drop_table, table_exists?.
//
// Its API shape mirrors velox's dialect/sql/schema.NewMigrate constructor
// (dialect/sql/schema/migrate_test.go): a driver plus dialect name, no
// hidden global state.
type Migrator struct {
	drv     dialect.ExecQuerier
	dialect string
}

// NewMigrator returns a Migrator bound to drv, rendering DDL for dialect.
func NewMigrator(drv dialect.ExecQuerier, dialectName string) *Migrator {
	return &Migrator{drv: drv, dialect: dialectName}
}

// CreateTable issues CREATE TABLE <name> (<extraColumns...>).
func (m *Migrator) CreateTable(ctx context.Context, name string, extraColumns []ColumnSpec) error {
	frags := make([]string, 0, len(extraColumns))
	for _, c := range extraColumns {
		frag, err := c.Render(m.dialect)
		if err != nil {
			return fmt.Errorf("dialect/sql/schema: create_table %s: %w", name, err)
		}
		frags = append(frags, frag)
	}
	q := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(m.dialect, name), strings.Join(frags, ", "))
	return m.exec(ctx, q)
}

// AddColumn issues ALTER TABLE <table> ADD COLUMN <spec>.
func (m *Migrator) AddColumn(ctx context.Context, table string, spec ColumnSpec) error {
	frag, err := spec.Render(m.dialect)
	if err != nil {
		return fmt.Errorf("dialect/sql/schema: add_column %s.%s: %w", table, spec.Name, err)
	}
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", QuoteIdent(m.dialect, table), frag)
	return m.exec(ctx, q)
}

// RenameColumn issues the dialect-correct column rename statement.
func (m *Migrator) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	var q string
	switch m.dialect {
	case dialect.MySQL:
		// MySQL 8+ supports RENAME COLUMN; older servers need CHANGE with a
		// re-stated type, which the engine does not track here, so the
		// modern syntax is used.
		q = fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			QuoteIdent(m.dialect, table), QuoteIdent(m.dialect, oldName), QuoteIdent(m.dialect, newName))
	default:
		q = fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			QuoteIdent(m.dialect, table), QuoteIdent(m.dialect, oldName), QuoteIdent(m.dialect, newName))
	}
	return m.exec(ctx, q)
}

// DropColumn issues ALTER TABLE <table> DROP COLUMN <name>.
func (m *Migrator) DropColumn(ctx context.Context, table, name string) error {
	q := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", QuoteIdent(m.dialect, table), QuoteIdent(m.dialect, name))
	return m.exec(ctx, q)
}

// RenameTable issues the dialect-correct table rename statement.
func (m *Migrator) RenameTable(ctx context.Context, oldName, newName string) error {
	var q string
	switch m.dialect {
	case dialect.MySQL:
		q = fmt.Sprintf("RENAME TABLE %s TO %s", QuoteIdent(m.dialect, oldName), QuoteIdent(m.dialect, newName))
	default:
		q = fmt.Sprintf("ALTER TABLE %s RENAME TO %s", QuoteIdent(m.dialect, oldName), QuoteIdent(m.dialect, newName))
	}
	return m.exec(ctx, q)
}

// DropTable issues DROP TABLE IF EXISTS <name>, tolerant of an already
// absent table.
func (m *Migrator) DropTable(ctx context.Context, name string) error {
	q := fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdent(m.dialect, name))
	return m.exec(ctx, q)
}

// TableExists reports whether name is a physical table in the connected
// database's default schema.
func (m *Migrator) TableExists(ctx context.Context, name string) (bool, error) {
	var q string
	switch m.dialect {
	case dialect.Postgres:
		q = "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = %1)"
	case dialect.MySQL:
		q = "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = %1)"
	case dialect.SQLite:
		q = "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = %1)"
	default:
		return false, fmt.Errorf("dialect/sql/schema: unsupported dialect %q", m.dialect)
	}
	text, args := Clause(m.dialect, q, []any{name})
	var rows sql.Rows
	if err := m.drv.Query(ctx, text, args, &rows); err != nil {
		return false, fmt.Errorf("dialect/sql/schema: table_exists %s: %w", name, err)
	}
	defer rows.Close()
	exists := false
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, err
		}
	}
	return exists, rows.Err()
}

func (m *Migrator) exec(ctx context.Context, q string) error {
	if err := m.drv.Exec(ctx, q, []any{}, nil); err != nil {
		return fmt.Errorf("dialect/sql/schema: %w", err)
	}
	return nil
}
