package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"doglog/internal/docstore"
)

func TestMapError(t *testing.T) {
	if mapError(nil, "pets", "p1") != nil {
		t.Fatalf("expected nil passthrough")
	}
	if err := mapError(status.Error(codes.NotFound, "gone"), "pets", "p1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found mapping, got %v", err)
	}
	if err := mapError(status.Error(codes.AlreadyExists, "dup"), "vetKeys", "k"); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected already exists mapping, got %v", err)
	}
	other := fmt.Errorf("unavailable")
	if err := mapError(other, "", ""); !errors.Is(err, other) {
		t.Fatalf("expected other errors untouched, got %v", err)
	}
}

func TestToMapRequiresObject(t *testing.T) {
	m, err := toMap(struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}{Name: "Rex", Age: 3})
	if err != nil {
		t.Fatalf("toMap: %v", err)
	}
	if m["name"] != "Rex" || m["age"] != float64(3) {
		t.Fatalf("unexpected map %v", m)
	}
	if _, err := toMap([]int{1, 2}); err == nil {
		t.Fatalf("expected error for non-object document")
	}
}

func TestNewRequiresProject(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing project error")
	}
}

// TestEmulatorRoundTrip runs only when a Firestore emulator is available.
func TestEmulatorRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	store, err := New(ctx, Config{ProjectID: "doglog-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	coll := "pets_" + store.NewID()
	err = store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if _, err := tx.Query(coll, docstore.Query{Filters: []docstore.Filter{docstore.Where("ownerId", docstore.OpEqual, "u1")}}); err != nil {
			return err
		}
		if err := tx.Create(coll, "p1", map[string]any{"ownerId": "u1", "name": "Rex"}); err != nil {
			return err
		}
		if _, err := tx.Get(coll, "p1"); !errors.Is(err, docstore.ErrReadAfterWrite) {
			t.Fatalf("expected read-after-write, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	docs, err := store.Query(ctx, coll, docstore.Query{Filters: []docstore.Filter{docstore.Where("ownerId", docstore.OpEqual, "u1")}})
	if err != nil || len(docs) != 1 || docs[0].ID != "p1" {
		t.Fatalf("unexpected query result %+v %v", docs, err)
	}
	err = store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Create(coll, "p1", map[string]any{"ownerId": "u1"})
	})
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if _, err := store.Get(ctx, coll, "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
