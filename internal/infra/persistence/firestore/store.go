// Package firestore adapts Cloud Firestore to the docstore contract.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"doglog/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Config selects the Firestore project and database.
type Config struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
}

// Store is a docstore.Store backed by a Firestore client.
type Store struct {
	client *firestore.Client
}

// New dials Firestore. FIRESTORE_EMULATOR_HOST is honoured by the client library.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore: project id is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var (
		client *firestore.Client
		err    error
	)
	if cfg.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client, e.g. one obtained from a firebase.App.
func NewFromClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Client exposes the underlying Firestore client.
func (s *Store) Client() *firestore.Client { return s.client }

func (s *Store) Driver() docstore.Driver { return docstore.DriverFirestore }

func (s *Store) Close() error { return s.client.Close() }

// NewID returns an auto id in Firestore's own format. No RPC is made.
func (s *Store) NewID() string { return s.client.Collection("_").NewDoc().ID }

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return docstore.Document{}, mapError(err, collection, id)
	}
	return fromSnapshot(snap)
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	iter := buildQuery(s.client.Collection(collection), q).Documents(ctx)
	return drain(iter, collection)
}

// RunTransaction delegates to Firestore, which retries fn on contention.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &transaction{client: s.client, tx: ftx})
	})
	if err != nil {
		return mapError(err, "", "")
	}
	return nil
}

type transaction struct {
	client *firestore.Client
	tx     *firestore.Transaction
	wrote  bool
}

func (t *transaction) Get(collection, id string) (docstore.Document, error) {
	if t.wrote {
		return docstore.Document{}, docstore.ErrReadAfterWrite
	}
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return docstore.Document{}, mapError(err, collection, id)
	}
	return fromSnapshot(snap)
}

func (t *transaction) Query(collection string, q docstore.Query) ([]docstore.Document, error) {
	if t.wrote {
		return nil, docstore.ErrReadAfterWrite
	}
	return drain(t.tx.Documents(buildQuery(t.client.Collection(collection), q)), collection)
}

func (t *transaction) Create(collection, id string, v any) error {
	data, err := toMap(v)
	if err != nil {
		return err
	}
	t.wrote = true
	return mapError(t.tx.Create(t.client.Collection(collection).Doc(id), data), collection, id)
}

func (t *transaction) Set(collection, id string, v any) error {
	data, err := toMap(v)
	if err != nil {
		return err
	}
	t.wrote = true
	return mapError(t.tx.Set(t.client.Collection(collection).Doc(id), data), collection, id)
}

func (t *transaction) Delete(collection, id string) error {
	t.wrote = true
	return mapError(t.tx.Delete(t.client.Collection(collection).Doc(id)), collection, id)
}

func buildQuery(coll *firestore.CollectionRef, q docstore.Query) firestore.Query {
	query := coll.Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, string(f.Op), f.Value)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func drain(iter *firestore.DocumentIterator, collection string) ([]docstore.Document, error) {
	defer iter.Stop()
	var out []docstore.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, mapError(err, collection, "")
		}
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (docstore.Document, error) {
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return docstore.Document{}, fmt.Errorf("firestore: encode %s: %w", snap.Ref.ID, err)
	}
	return docstore.Document{ID: snap.Ref.ID, Data: raw}, nil
}

// toMap converts a record into the map form Firestore stores. Values pass
// through JSON first so documents look the same on every driver.
func toMap(v any) (map[string]any, error) {
	raw, err := docstore.Encode(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("firestore: document must be a JSON object: %w", err)
	}
	return out, nil
}

func mapError(err error, collection, id string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, collection, id)
	}
	return err
}
