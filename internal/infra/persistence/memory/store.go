// Package memory provides an in-memory implementation of the document store
// used for tests and ephemeral environments. The sqlite and postgres drivers
// embed it and persist committed changes through a commit hook.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"doglog/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Action describes how a committed change affects a document.
type Action string

const (
	ActionSet    Action = "set"
	ActionDelete Action = "delete"
)

// Change is one document write captured by a transaction. Data is nil for deletes.
type Change struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// CommitHook runs after a transaction function succeeds and before its state
// becomes visible. Returning an error aborts the commit.
type CommitHook func(ctx context.Context, changes []Change) error

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Collections map[string]map[string]json.RawMessage `json:"collections"`
}

type memoryState map[string]map[string]json.RawMessage

func (s memoryState) clone() memoryState {
	out := make(memoryState, len(s))
	for coll, docs := range s {
		copied := make(map[string]json.RawMessage, len(docs))
		for id, raw := range docs {
			copied[id] = cloneRaw(raw)
		}
		out[coll] = copied
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// Store is an in-memory docstore.Store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	hook   CommitHook
	idFn   func() string
	driver docstore.Driver
}

// Option customises a Store.
type Option func(*Store)

// WithCommitHook installs a hook that sees every committed change set.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithIDFunc overrides document id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// WithDriver sets the driver name reported by Driver. Embedding stores use it.
func WithDriver(d docstore.Driver) Option {
	return func(s *Store) { s.driver = d }
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  make(memoryState),
		idFn:   uuid.NewString,
		driver: docstore.DriverMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCommitHook replaces the commit hook after construction.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// NewID returns a fresh document id.
func (s *Store) NewID() string { return s.idFn() }

// Driver reports the driver name.
func (s *Store) Driver() docstore.Driver { return s.driver }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of every collection.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Collections: s.state.clone()}
}

// ImportState replaces the store contents with snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	state := memoryState(snapshot.Collections).clone()
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Get reads one document outside a transaction.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.state, collection, id)
}

// Query runs q against one collection outside a transaction.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return docstore.Select(s.state[collection], q)
}

// RunTransaction executes fn within a transactional copy of the store state.
// Transactions are serialized; the copy replaces the live state only after fn
// and the commit hook succeed.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), index: make(map[string]int)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.changes) == 0 {
		return nil
	}
	if s.hook != nil {
		if err := s.hook(ctx, tx.changes); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	s.state = tx.state
	return nil
}

func get(state memoryState, collection, id string) (docstore.Document, error) {
	raw, ok := state[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	return docstore.Document{ID: id, Data: cloneRaw(raw)}, nil
}

type transaction struct {
	state   memoryState
	changes []Change
	index   map[string]int
}

func (tx *transaction) checkRead() error {
	if len(tx.changes) > 0 {
		return docstore.ErrReadAfterWrite
	}
	return nil
}

func (tx *transaction) Get(collection, id string) (docstore.Document, error) {
	if err := tx.checkRead(); err != nil {
		return docstore.Document{}, err
	}
	return get(tx.state, collection, id)
}

func (tx *transaction) Query(collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := tx.checkRead(); err != nil {
		return nil, err
	}
	return docstore.Select(tx.state[collection], q)
}

func (tx *transaction) Create(collection, id string, v any) error {
	if _, exists := tx.state[collection][id]; exists {
		return fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, collection, id)
	}
	return tx.Set(collection, id, v)
}

func (tx *transaction) Set(collection, id string, v any) error {
	if id == "" {
		return fmt.Errorf("set %s: empty document id", collection)
	}
	raw, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	docs, ok := tx.state[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		tx.state[collection] = docs
	}
	docs[id] = cloneRaw(raw)
	tx.record(Change{Collection: collection, ID: id, Action: ActionSet, Data: cloneRaw(raw)})
	return nil
}

func (tx *transaction) Delete(collection, id string) error {
	delete(tx.state[collection], id)
	tx.record(Change{Collection: collection, ID: id, Action: ActionDelete})
	return nil
}

// record keeps only the latest change per document, in first-touch order.
func (tx *transaction) record(change Change) {
	key := change.Collection + "\x00" + change.ID
	if i, ok := tx.index[key]; ok {
		tx.changes[i] = change
		return
	}
	tx.index[key] = len(tx.changes)
	tx.changes = append(tx.changes, change)
}
