package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"doglog/internal/docstore"
)

type record struct {
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

func TestStoreRunTransactionAndSnapshots(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if _, err := tx.Get("pets", "missing"); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		return tx.Create("pets", "p1", record{Name: "Rex", OwnerID: "u1"})
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	doc, err := store.Get(ctx, "pets", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got record
	if err := doc.Decode(&got); err != nil || got.Name != "Rex" {
		t.Fatalf("unexpected doc %+v %v", got, err)
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if _, err := store.Get(ctx, "pets", "p1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected cleared state, got %v", err)
	}
	store.ImportState(snapshot)
	if _, err := store.Get(ctx, "pets", "p1"); err != nil {
		t.Fatalf("expected restored state: %v", err)
	}
	if store.Driver() != docstore.DriverMemory || store.Close() != nil {
		t.Fatalf("unexpected driver metadata")
	}
}

func TestStoreRollbackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := fmt.Errorf("boom")
	err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := tx.Set("pets", "p1", record{Name: "Rex"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.Get(ctx, "pets", "p1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestTransactionReadsMustPrecedeWrites(t *testing.T) {
	store := NewStore()
	err := store.RunTransaction(context.Background(), func(_ context.Context, tx docstore.Tx) error {
		if err := tx.Set("pets", "p1", record{Name: "Rex"}); err != nil {
			return err
		}
		if _, err := tx.Get("pets", "p1"); !errors.Is(err, docstore.ErrReadAfterWrite) {
			t.Fatalf("expected read-after-write error on get, got %v", err)
		}
		if _, err := tx.Query("pets", docstore.Query{}); !errors.Is(err, docstore.ErrReadAfterWrite) {
			t.Fatalf("expected read-after-write error on query, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestCreateRejectsExistingAndDeleteIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	mustRun(t, store, func(tx docstore.Tx) error { return tx.Create("vetKeys", "u1:k", record{}) })
	err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Create("vetKeys", "u1:k", record{})
	})
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	mustRun(t, store, func(tx docstore.Tx) error {
		if err := tx.Delete("vetKeys", "u1:k"); err != nil {
			return err
		}
		return tx.Delete("vetKeys", "never-there")
	})
	if _, err := store.Get(ctx, "vetKeys", "u1:k"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
	if err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Set("pets", "", record{})
	}); err == nil {
		t.Fatalf("expected empty id error")
	}
}

func TestQueryFiltersAndOrders(t *testing.T) {
	store := NewStore()
	mustRun(t, store, func(tx docstore.Tx) error {
		for id, owner := range map[string]string{"b": "u1", "a": "u1", "c": "u2"} {
			if err := tx.Set("pets", id, record{Name: id, OwnerID: owner}); err != nil {
				return err
			}
		}
		return nil
	})
	docs, err := store.Query(context.Background(), "pets", docstore.Query{Filters: []docstore.Filter{docstore.Where("ownerId", docstore.OpEqual, "u1")}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("unexpected docs %+v", docs)
	}
	empty, err := store.Query(context.Background(), "unknown", docstore.Query{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for unknown collection: %v %v", empty, err)
	}
}

func TestCommitHookSeesCompactedChangesAndCanAbort(t *testing.T) {
	var seen []Change
	store := NewStore(WithCommitHook(func(_ context.Context, changes []Change) error {
		seen = append([]Change(nil), changes...)
		return nil
	}), WithIDFunc(func() string { return "fixed" }))
	if store.NewID() != "fixed" {
		t.Fatalf("expected custom id func")
	}
	mustRun(t, store, func(tx docstore.Tx) error {
		if err := tx.Set("pets", "p1", record{Name: "one"}); err != nil {
			return err
		}
		if err := tx.Set("pets", "p2", record{Name: "two"}); err != nil {
			return err
		}
		return tx.Set("pets", "p1", record{Name: "uno"})
	})
	if len(seen) != 2 || seen[0].ID != "p1" || seen[1].ID != "p2" {
		t.Fatalf("unexpected changes %+v", seen)
	}
	if string(seen[0].Data) != `{"name":"uno","ownerId":""}` || seen[0].Action != ActionSet {
		t.Fatalf("expected latest write for p1, got %s", seen[0].Data)
	}

	store.SetCommitHook(func(context.Context, []Change) error { return fmt.Errorf("disk full") })
	err := store.RunTransaction(context.Background(), func(_ context.Context, tx docstore.Tx) error {
		return tx.Delete("pets", "p1")
	})
	if err == nil {
		t.Fatalf("expected hook error")
	}
	if _, err := store.Get(context.Background(), "pets", "p1"); err != nil {
		t.Fatalf("expected aborted commit to leave p1 in place: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Get(ctx, "pets", "p1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled get, got %v", err)
	}
	if _, err := store.Query(ctx, "pets", docstore.Query{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled query, got %v", err)
	}
	if err := store.RunTransaction(ctx, func(context.Context, docstore.Tx) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled transaction, got %v", err)
	}
}

func mustRun(t *testing.T, store *Store, fn func(tx docstore.Tx) error) {
	t.Helper()
	if err := store.RunTransaction(context.Background(), func(_ context.Context, tx docstore.Tx) error { return fn(tx) }); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
