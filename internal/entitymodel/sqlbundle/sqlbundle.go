// Package sqlbundle hands the document table DDL to the SQL storage drivers.
package sqlbundle

import (
	"strings"

	sqldocs "doglog/docs/schema/sql"
)

// SQLite returns the DDL for the sqlite driver.
func SQLite() string {
	return sqldocs.SQLite
}

// Postgres returns the DDL for the postgres driver.
func Postgres() string {
	return sqldocs.Postgres
}

// SplitStatements breaks a DDL script into statements ending in a semicolon.
// Line comments are dropped, including ones trailing a statement, unless the
// "--" sits inside a quoted literal. Statements keep their line breaks.
func SplitStatements(ddl string) []string {
	var (
		stmts   []string
		current []string
	)
	flush := func() {
		if stmt := strings.TrimSpace(strings.Join(current, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(ddl, "\n") {
		line = strings.TrimRight(stripLineComment(line), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return stmts
}

// stripLineComment cuts line at the first "--" outside single or double quotes.
func stripLineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(line) && line[i+1] == '-':
			return line[:i]
		}
	}
	return line
}
