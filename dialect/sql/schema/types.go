// Package schema implements the SQL collaborator: DDL
// (create_table, add_column, rename_column, drop_column, rename_table,
// drop_table, table_exists?) and row DML (insert, update, delete, choose,
// fetch, query, recursive_query, clause).
//
// Column types are described with ariga.io/atlas/sql/schema's
// dialect-neutral Type values, the same vocabulary velox's code generator
// uses internally (compiler/gen/type_field.go) to describe a field's
// storage type before rendering it for a specific backend.
package schema

import (
	"fmt"

	atlas "ariga.io/atlas/sql/schema"

	"github.com/syssam/reflectdb/dialect"
)

// Raw marks a value that must be inlined into DML as a literal SQL
// expression rather than bound as a parameter — e.g. the timestamp kind's
// current_timestamp sentinel. Store.Insert/Update special-
// case it.
type Raw string

// ColumnSpec is the dialect-neutral description of one column DDL clause —
// the (column_name, sql_type, extra_clauses…) tuple each field kind's
// TableAdditions produces.
type ColumnSpec struct {
	Name          string
	Type          atlas.Type
	Nullable      bool
	Default       string // raw SQL default expression, e.g. "0" or "current_timestamp"
	PrimaryKey    bool
	AutoIncrement bool
}

// Column kind constructors used by field kinds to build their ColumnSpec.
func SerialType() atlas.Type   { return &atlas.IntegerType{T: "integer"} }
func IntegerType() atlas.Type  { return &atlas.IntegerType{T: "int"} }
func StringType(n int) atlas.Type {
	return &atlas.StringType{T: "varchar", Size: n}
}
func TextType() atlas.Type    { return &atlas.StringType{T: "text"} }
func BoolType() atlas.Type    { return &atlas.BoolType{T: "boolean"} }
func TimestampType() atlas.Type { return &atlas.TimeType{T: "timestamp"} }

// renderType renders an atlas Type into dialect-specific SQL, matching
// the concrete per-kind DDL each field kind prescribes.
func renderType(dialectName string, t atlas.Type, autoIncrement bool) (string, error) {
	switch v := t.(type) {
	case *atlas.IntegerType:
		if autoIncrement {
			switch dialectName {
			case dialect.Postgres:
				return "serial", nil
			case dialect.MySQL:
				return "int AUTO_INCREMENT", nil
			case dialect.SQLite:
				return "integer", nil
			}
		}
		return "integer", nil
	case *atlas.StringType:
		if v.T == "text" {
			return "text", nil
		}
		if dialectName == dialect.MySQL && v.Size == 0 {
			return "varchar(256)", nil
		}
		if v.Size > 0 {
			return fmt.Sprintf("varchar(%d)", v.Size), nil
		}
		return "varchar(256)", nil
	case *atlas.BoolType:
		switch dialectName {
		case dialect.SQLite:
			return "boolean", nil
		default:
			return "boolean", nil
		}
	case *atlas.TimeType:
		switch dialectName {
		case dialect.Postgres:
			return "timestamp with time zone", nil
		default:
			return "timestamp", nil
		}
	default:
		return "", fmt.Errorf("dialect/sql/schema: unsupported column type %T", t)
	}
}

// Render produces the full column DDL fragment: `name type [PRIMARY KEY]
// [NOT NULL] [DEFAULT ...]`.
func (c ColumnSpec) Render(dialectName string) (string, error) {
	sqlType, err := renderType(dialectName, c.Type, c.AutoIncrement)
	if err != nil {
		return "", err
	}
	frag := fmt.Sprintf("%s %s", QuoteIdent(dialectName, c.Name), sqlType)
	if c.PrimaryKey {
		frag += " PRIMARY KEY"
	}
	if !c.Nullable && !c.PrimaryKey {
		frag += " NOT NULL"
	}
	if c.Default != "" {
		frag += " DEFAULT " + c.Default
	}
	return frag, nil
}

// QuoteIdent quotes a table/column identifier the way the given dialect
// expects: backticks for MySQL, double quotes otherwise.
func QuoteIdent(dialectName, name string) string {
	if dialectName == dialect.MySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
