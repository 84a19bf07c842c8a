package dialect

import "context"

// Supported dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the standard Exec and Query methods every collaborator
// backend must provide.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the minimal contract the engine needs from a database
// connection: execute/query, start transactions, report its dialect name,
// and close.
type Driver interface {
	ExecQuerier
	Tx(ctx context.Context) (Tx, error)
	Close() error
	Dialect() string
}

// Tx extends Driver with the two transaction-terminal operations.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}
