// Package postgres provides a Postgres-backed document store that mirrors the
// in-memory semantics and writes every committed change as a JSONB row.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"doglog/internal/docstore"
	"doglog/internal/entitymodel/sqlbundle"
	"doglog/internal/infra/persistence/memory"
)

var _ docstore.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/doglog?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the documents table exists and hydrates the in-memory store from it.
func NewStore(ctx context.Context, dsn string, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDocumentsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	opts = append(opts, memory.WithDriver(docstore.DriverPostgres))
	mem := memory.NewStore(opts...)
	mem.ImportState(snapshot)
	s := &Store{Store: mem, db: db}
	mem.SetCommitHook(s.persist)
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func ensureDocumentsTable(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqlbundle.SplitStatements(sqlbundle.Postgres()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure documents table: %w", err)
		}
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT collection, id, payload FROM documents`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{Collections: make(map[string]map[string]json.RawMessage)}
	for rows.Next() {
		var collection, id string
		var payload []byte
		if err := rows.Scan(&collection, &id, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan document: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		docs, ok := snapshot.Collections[collection]
		if !ok {
			docs = make(map[string]json.RawMessage)
			snapshot.Collections[collection] = docs
		}
		docs[id] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate documents: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, changes []memory.Change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, c := range changes {
		switch c.Action {
		case memory.ActionSet:
			if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection,id,payload) VALUES($1,$2,$3) ON CONFLICT(collection,id) DO UPDATE SET payload=EXCLUDED.payload`, c.Collection, c.ID, string(c.Data)); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", c.Collection, c.ID, err)
			}
		case memory.ActionDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, c.Collection, c.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", c.Collection, c.ID, err)
			}
		default:
			return fmt.Errorf("unknown change action %q", c.Action)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
