// Package repository implements typed, owner-scoped data access over a
// docstore.Store. Repository is the generic CRUD layer; ArchivableRepository
// adds soft delete; the pet, vet and link repositories layer uniqueness and
// the primary-vet invariant on top using store transactions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doglog/internal/docstore"
	"doglog/pkg/domain"
)

// Collection names.
const (
	CollectionPets    = "pets"
	CollectionVets    = "vets"
	CollectionPetVets = "petVets"
	CollectionVetKeys = "vetKeys"
)

// Clock returns the current time. Repositories stamp documents with it.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

// Record is the constraint satisfied by pointers to stored entities.
type Record[T any] interface {
	*T
	Meta() *domain.Base
	Owner() string
}

// Repository provides owner-scoped CRUD for one collection.
type Repository[T any, P Record[T]] struct {
	store      docstore.Store
	collection string
	entity     domain.EntityType
	now        Clock
}

// NewRepository constructs a repository for collection. A nil clock uses UTC wall time.
func NewRepository[T any, P Record[T]](store docstore.Store, collection string, entity domain.EntityType, now Clock) *Repository[T, P] {
	if now == nil {
		now = defaultClock
	}
	return &Repository[T, P]{store: store, collection: collection, entity: entity, now: now}
}

// Store returns the underlying document store.
func (r *Repository[T, P]) Store() docstore.Store { return r.store }

// Collection returns the collection name.
func (r *Repository[T, P]) Collection() string { return r.collection }

// Now returns the repository clock reading in UTC.
func (r *Repository[T, P]) Now() time.Time { return r.now().UTC() }

func (r *Repository[T, P]) notFound(id string) error {
	return domain.NotFoundError{Entity: r.entity, ID: id}
}

func (r *Repository[T, P]) decode(doc docstore.Document) (T, error) {
	var v T
	if err := doc.Decode(&v); err != nil {
		return v, err
	}
	P(&v).Meta().ID = doc.ID
	return v, nil
}

func (r *Repository[T, P]) decodeOwned(doc docstore.Document, ownerID string) (T, error) {
	v, err := r.decode(doc)
	if err != nil {
		return v, err
	}
	if P(&v).Owner() != ownerID {
		var zero T
		return zero, r.notFound(doc.ID)
	}
	return v, nil
}

func (r *Repository[T, P]) decodeAll(docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func ownerFilters(ownerID string, filters []docstore.Filter) []docstore.Filter {
	out := make([]docstore.Filter, 0, len(filters)+1)
	out = append(out, docstore.Where("ownerId", docstore.OpEqual, ownerID))
	return append(out, filters...)
}

// Get returns the record with id. Records of other owners are reported as not found.
func (r *Repository[T, P]) Get(ctx context.Context, ownerID, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, r.notFound(id)
	}
	doc, err := r.store.Get(ctx, r.collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return zero, r.notFound(id)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", r.entity, id, err)
	}
	return r.decodeOwned(doc, ownerID)
}

// List returns the owner's records matching filters, in document id order.
func (r *Repository[T, P]) List(ctx context.Context, ownerID string, filters ...docstore.Filter) ([]T, error) {
	docs, err := r.store.Query(ctx, r.collection, docstore.Query{Filters: ownerFilters(ownerID, filters)})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entity, err)
	}
	return r.decodeAll(docs)
}

// Create stores v. An empty id is replaced by a generated one.
func (r *Repository[T, P]) Create(ctx context.Context, v T) (T, error) {
	err := r.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return r.CreateTx(tx, &v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Update applies mutate to the stored record. Id, createdAt and owner cannot be changed.
func (r *Repository[T, P]) Update(ctx context.Context, ownerID, id string, mutate func(*T) error) (T, error) {
	var updated T
	err := r.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		current, err := r.GetTx(tx, ownerID, id)
		if err != nil {
			return err
		}
		meta := *P(&current).Meta()
		if err := mutate(&current); err != nil {
			return err
		}
		if P(&current).Owner() != ownerID {
			return domain.ValidationError{Entity: r.entity, Problems: []domain.FieldProblem{{Field: "ownerId", Message: "cannot be changed"}}}
		}
		m := P(&current).Meta()
		m.ID, m.CreatedAt = meta.ID, meta.CreatedAt
		if err := r.PutTx(tx, &current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete physically removes the record.
func (r *Repository[T, P]) Delete(ctx context.Context, ownerID, id string) error {
	return r.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if _, err := r.GetTx(tx, ownerID, id); err != nil {
			return err
		}
		return r.DeleteTx(tx, id)
	})
}

// GetTx reads a record inside tx.
func (r *Repository[T, P]) GetTx(tx docstore.Tx, ownerID, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, r.notFound(id)
	}
	doc, err := tx.Get(r.collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return zero, r.notFound(id)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", r.entity, id, err)
	}
	return r.decodeOwned(doc, ownerID)
}

// QueryTx lists the owner's records matching filters inside tx.
func (r *Repository[T, P]) QueryTx(tx docstore.Tx, ownerID string, filters ...docstore.Filter) ([]T, error) {
	docs, err := tx.Query(r.collection, docstore.Query{Filters: ownerFilters(ownerID, filters)})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.entity, err)
	}
	return r.decodeAll(docs)
}

// CreateTx assigns an id when empty, stamps timestamps and creates the document.
func (r *Repository[T, P]) CreateTx(tx docstore.Tx, v *T) error {
	m := P(v).Meta()
	if m.ID == "" {
		m.ID = r.store.NewID()
	}
	now := r.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	if err := tx.Create(r.collection, m.ID, v); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return domain.DuplicateError{Entity: r.entity, Field: "id", Value: m.ID}
		}
		return fmt.Errorf("create %s: %w", r.entity, err)
	}
	return nil
}

// PutTx refreshes updatedAt and writes v over its stored document.
func (r *Repository[T, P]) PutTx(tx docstore.Tx, v *T) error {
	m := P(v).Meta()
	m.UpdatedAt = r.Now()
	if err := tx.Set(r.collection, m.ID, v); err != nil {
		return fmt.Errorf("put %s %s: %w", r.entity, m.ID, err)
	}
	return nil
}

// DeleteTx removes the document with id inside tx.
func (r *Repository[T, P]) DeleteTx(tx docstore.Tx, id string) error {
	if err := tx.Delete(r.collection, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.entity, id, err)
	}
	return nil
}
