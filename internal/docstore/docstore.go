// Package docstore defines the document database contract that repositories
// are written against. Drivers live under internal/infra/persistence.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Driver identifies a concrete document store implementation.
type Driver string

const (
	DriverMemory    Driver = "memory"    // in-memory only (tests / ephemeral)
	DriverSQLite    Driver = "sqlite"    // memory store persisted to an embedded sqlite file
	DriverPostgres  Driver = "postgres"  // memory store persisted to PostgreSQL
	DriverFirestore Driver = "firestore" // Cloud Firestore
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists is returned when Create targets an existing document.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrReadAfterWrite is returned when a transaction reads after it has written.
	ErrReadAfterWrite = errors.New("docstore: transaction reads must precede writes")
)

// Document is a stored record. Data holds the JSON encoding of the record.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document payload into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Op is a filter comparison operator.
type Op string

// Supported operators; the string values match Firestore's.
const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

// Filter restricts a query to documents whose top-level Field compares to Value.
// For OpIn, Value must be a slice.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents from one collection. Results are ordered by document id.
type Query struct {
	Filters []Filter
	Limit   int
}

// Tx is a unit of work. All reads must happen before the first write.
type Tx interface {
	Get(collection, id string) (Document, error)
	Query(collection string, q Query) ([]Document, error)
	// Create writes a new document and fails with ErrAlreadyExists if id is taken.
	Create(collection, id string, v any) error
	// Set creates or replaces a document.
	Set(collection, id string, v any) error
	// Delete removes a document; deleting a missing document is not an error.
	Delete(collection, id string) error
}

// Store is a transactional document database.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// RunTransaction runs fn atomically. When fn returns an error nothing is written.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	NewID() string
	Driver() Driver
	Close() error
}

// Encode marshals v into a document payload.
func Encode(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}
