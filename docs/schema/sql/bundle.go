// Package sqldocs exposes the document table DDL directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the DDL applied by the sqlite storage driver.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the DDL applied by the postgres storage driver.
//
//go:embed postgres.sql
var Postgres string
