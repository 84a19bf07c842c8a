// Package dialect provides database dialect abstraction for the engine.
//
// It defines the interfaces and constants the SQL collaborator is built
// against, so the rest of the engine never imports
// database/sql directly and stays agnostic to which of the three
// supported backends — PostgreSQL, MySQL, SQLite — a given Engine talks
// to.
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Sub-packages
//
//   - dialect/sql: database/sql-backed Driver implementation.
//   - dialect/sql/schema: DDL/DML collaborator.
package dialect
