package schema

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/reflectdb/dialect"
	"github.com/syssam/reflectdb/dialect/sql"
)

// Store is the DML half of the SQL collaborator: query,
// fetch, choose, insert, update, delete, and the recursive CTE used by
// progenitors/descendents.
type Store struct {
	drv     dialect.ExecQuerier
	dialect string
}

// NewStore returns a Store bound to drv, rendering SQL for dialect.
func NewStore(drv dialect.ExecQuerier, dialectName string) *Store {
	return &Store{drv: drv, dialect: dialectName}
}

var placeholderRe = regexp.MustCompile(`%(\d+)`)

// Clause resolves a positional-placeholder template (e.g. "id = %1") into
// dialect-bound SQL plus the argument slice in the order the driver
// expects. Templates use positional placeholders (%1, %2, …) resolved
// by the collaborator into each dialect's own bind-parameter syntax.
func Clause(dialectName, template string, args []any) (string, []any) {
	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, args
	}
	var sb strings.Builder
	out := make([]any, 0, len(matches))
	last := 0
	for _, m := range matches {
		sb.WriteString(template[last:m[0]])
		idx, _ := strconv.Atoi(template[m[2]:m[3]])
		if idx < 1 || idx > len(args) {
			sb.WriteString(template[m[0]:m[1]])
			last = m[1]
			continue
		}
		out = append(out, args[idx-1])
		if dialectName == dialect.Postgres {
			fmt.Fprintf(&sb, "$%d", len(out))
		} else {
			sb.WriteString("?")
		}
		last = m[1]
	}
	sb.WriteString(template[last:])
	return sb.String(), out
}

// Query runs a fully-formed SQL statement and returns each row as a
// slug-to-value map keyed by column name.
func (s *Store) Query(ctx context.Context, sqlText string, args ...any) ([]map[string]any, error) {
	var rows sql.Rows
	if err := s.drv.Query(ctx, sqlText, args, &rows); err != nil {
		return nil, fmt.Errorf("dialect/sql/schema: query: %w", err)
	}
	defer rows.Close()
	return scanRows(&rows)
}

// Fetch runs SELECT * FROM <table> WHERE <whereTemplate>.
func (s *Store) Fetch(ctx context.Context, table, whereTemplate string, args ...any) ([]map[string]any, error) {
	where, bound := Clause(s.dialect, whereTemplate, args)
	q := fmt.Sprintf("SELECT * FROM %s", QuoteIdent(s.dialect, table))
	if where != "" {
		q += " WHERE " + where
	}
	return s.Query(ctx, q, bound...)
}

// Choose returns the row with the given id, or nil if none exists.
func (s *Store) Choose(ctx context.Context, table string, id any) (map[string]any, error) {
	rows, err := s.Fetch(ctx, table, "id = %1", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Insert runs INSERT INTO <table> (...) VALUES (...) RETURNING/re-selected
// and returns the inserted row, including any database-assigned defaults
// (serial id, column defaults). With no values it inserts an all-defaults
// row (DEFAULT VALUES, or () VALUES () on MySQL).
func (s *Store) Insert(ctx context.Context, table string, values map[string]any) (map[string]any, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	placeholders := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if raw, ok := values[col].(Raw); ok {
			placeholders[i] = string(raw)
			continue
		}
		args = append(args, values[col])
		if s.dialect == dialect.Postgres {
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		} else {
			placeholders[i] = "?"
		}
	}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = QuoteIdent(s.dialect, col)
	}
	colsSQL := "(" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if len(cols) == 0 && s.dialect != dialect.MySQL {
		colsSQL = "DEFAULT VALUES"
	}
	var id int64
	switch s.dialect {
	case dialect.Postgres:
		q := fmt.Sprintf("INSERT INTO %s %s RETURNING id", QuoteIdent(s.dialect, table), colsSQL)
		var rows sql.Rows
		if err := s.drv.Query(ctx, q, args, &rows); err != nil {
			return nil, fmt.Errorf("dialect/sql/schema: insert %s: %w", table, err)
		}
		defer rows.Close()
		if !rows.Next() {
			return nil, fmt.Errorf("dialect/sql/schema: insert %s: no id returned", table)
		}
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
	default:
		q := fmt.Sprintf("INSERT INTO %s %s", QuoteIdent(s.dialect, table), colsSQL)
		var res sql.Result
		if err := s.drv.Exec(ctx, q, args, &res); err != nil {
			return nil, fmt.Errorf("dialect/sql/schema: insert %s: %w", table, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		id = lastID
	}
	return s.Choose(ctx, table, id)
}

// Update runs UPDATE <table> SET ... WHERE <whereTemplate> and returns the
// number of affected rows.
func (s *Store) Update(ctx context.Context, table string, values map[string]any, whereTemplate string, args ...any) (int64, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	setFrags := make([]string, len(cols))
	setArgs := make([]any, 0, len(cols))
	n := 0
	for i, col := range cols {
		if raw, ok := values[col].(Raw); ok {
			setFrags[i] = fmt.Sprintf("%s = %s", QuoteIdent(s.dialect, col), string(raw))
			continue
		}
		setArgs = append(setArgs, values[col])
		n++
		if s.dialect == dialect.Postgres {
			setFrags[i] = fmt.Sprintf("%s = $%d", QuoteIdent(s.dialect, col), n)
		} else {
			setFrags[i] = fmt.Sprintf("%s = ?", QuoteIdent(s.dialect, col))
		}
	}
	where, whereArgs := Clause(s.dialect, whereTemplate, args)
	if s.dialect == dialect.Postgres {
		where = renumberPostgresPlaceholders(where, n)
	}
	q := fmt.Sprintf("UPDATE %s SET %s", QuoteIdent(s.dialect, table), strings.Join(setFrags, ", "))
	if where != "" {
		q += " WHERE " + where
	}
	var res sql.Result
	if err := s.drv.Exec(ctx, q, append(setArgs, whereArgs...), &res); err != nil {
		return 0, fmt.Errorf("dialect/sql/schema: update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Delete runs DELETE FROM <table> WHERE <whereTemplate> and returns the
// number of affected rows.
func (s *Store) Delete(ctx context.Context, table, whereTemplate string, args ...any) (int64, error) {
	where, bound := Clause(s.dialect, whereTemplate, args)
	q := fmt.Sprintf("DELETE FROM %s", QuoteIdent(s.dialect, table))
	if where != "" {
		q += " WHERE " + where
	}
	var res sql.Result
	if err := s.drv.Exec(ctx, q, bound, &res); err != nil {
		return 0, fmt.Errorf("dialect/sql/schema: delete %s: %w", table, err)
	}
	return res.RowsAffected()
}

// RecursiveQuery issues a recursive CTE over table, joining rows to their
// parent chain or descendant tree through parent_id. Backs the
// progenitors/descendents walks.
func (s *Store) RecursiveQuery(ctx context.Context, table string, columns []string, baseWhere, recurWhere string) ([]map[string]any, error) {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = QuoteIdent(s.dialect, c)
		}
		cols = strings.Join(quoted, ", ")
	}
	t := QuoteIdent(s.dialect, table)
	q := fmt.Sprintf(`WITH RECURSIVE walked AS (
	SELECT %[2]s FROM %[1]s WHERE %[3]s
	UNION ALL
	SELECT %[4]s FROM %[1]s t JOIN walked ON %[5]s
)
SELECT %[2]s FROM walked`, t, cols, baseWhere, qualify(t, cols), recurWhere)
	return s.Query(ctx, q)
}

func qualify(table, cols string) string {
	if cols == "*" {
		return "t.*"
	}
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = "t." + p
	}
	return strings.Join(parts, ", ")
}

// renumberPostgresPlaceholders shifts $1, $2, ... in a WHERE fragment so
// they continue after the n SET placeholders already emitted.
func renumberPostgresPlaceholders(where string, offset int) string {
	re := regexp.MustCompile(`\$(\d+)`)
	return re.ReplaceAllStringFunc(where, func(s string) string {
		n, _ := strconv.Atoi(s[1:])
		return fmt.Sprintf("$%d", n+offset)
	})
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeScanned(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeScanned converts driver-returned []byte (common for TEXT/NUMERIC
// columns under several drivers) into string so downstream field kinds can
// treat values uniformly.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
