// Package sqlite provides a document store that keeps its working set in
// memory and persists every committed change to an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"doglog/internal/docstore"
	"doglog/internal/entitymodel/sqlbundle"
	"doglog/internal/infra/persistence/memory"
)

var _ docstore.Store = (*Store)(nil)

const defaultPath = "doglog.db"

// Store persists documents to a single SQLite table, one row per document.
// Changes are written inside the memory commit, so a failed write leaves
// both the file and the in-memory state untouched.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and hydrates the
// in-memory working set from it.
func NewStore(path string, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range sqlbundle.SplitStatements(sqlbundle.SQLite()) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create documents table: %w", err)
		}
	}
	opts = append(opts, memory.WithDriver(docstore.DriverSQLite))
	s := &Store{Store: memory.NewStore(opts...), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.SetCommitHook(s.persist)
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT collection, id, payload FROM documents`)
	if err != nil {
		return fmt.Errorf("select documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{Collections: make(map[string]map[string]json.RawMessage)}
	for rows.Next() {
		var collection, id string
		var payload []byte
		if err := rows.Scan(&collection, &id, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		docs, ok := snapshot.Collections[collection]
		if !ok {
			docs = make(map[string]json.RawMessage)
			snapshot.Collections[collection] = docs
		}
		docs[id] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate documents: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context, changes []memory.Change) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, c := range changes {
		switch c.Action {
		case memory.ActionSet:
			if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection,id,payload) VALUES(?,?,?)
				ON CONFLICT(collection,id) DO UPDATE SET payload=excluded.payload`, c.Collection, c.ID, []byte(c.Data)); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", c.Collection, c.ID, err)
			}
		case memory.ActionDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, c.Collection, c.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", c.Collection, c.ID, err)
			}
		default:
			return fmt.Errorf("unknown change action %q", c.Action)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
