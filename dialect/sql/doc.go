// Package sql is the driver half of the SQL collaborator: a
// thin, dialect-aware wrapper over database/sql that the engine drives
// through the dialect.Driver/dialect.Tx interfaces.
//
// # Types
//
//   - Driver: wraps a *sql.DB, dispatching Exec/Query and starting
//     transactions.
//   - Tx: wraps a started *sql.Tx with the same Exec/Query surface, so the
//     engine's schema.Store and schema.Migrator can run unmodified inside
//     or outside a transaction.
//   - Conn: the shared Exec/Query implementation both Driver and Tx embed.
//
// # Opening a connection
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	store := schema.NewStore(drv, drv.Dialect())
//	migrator := schema.NewMigrator(drv, drv.Dialect())
//
// # Session variables
//
// WithVar/WithIntVar attach session-scoped SET statements (e.g. a
// per-request Postgres role) that are issued before the next statement and
// reset when the connection is released back to the pool.
//
// # Drivers
//
// drivers.go blank-imports github.com/go-sql-driver/mysql,
// github.com/lib/pq, and modernc.org/sqlite so dialect.MySQL/Postgres/
// SQLite are all usable via database/sql's driver registry without the
// caller needing its own import.
package sql
