package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/langfork/warden/merge"
)

func TestMemoryStoreBasic(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[string]()
	if err := s.Set(ctx, "foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "foo")
	if err != nil || !ok || v != "bar" {
		t.Fatalf("expected bar, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Delete(ctx, "foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "foo"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[string](WithExpiration[string](10 * time.Millisecond))
	if err := s.Set(ctx, "foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "foo"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(15 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "foo"); ok {
		t.Fatalf("expected key to expire")
	}
	if ok, _ := s.Contains(ctx, "foo"); ok {
		t.Fatalf("Contains true after expiry")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry not purged, len=%d", s.Len())
	}
}

func TestMemoryStoreLRUEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[int](WithMaxEntries[int](2), WithExpiration[int](100*time.Second))
	_ = s.Set(ctx, "a", 1)
	_ = s.Set(ctx, "b", 2)
	if _, ok, _ := s.Get(ctx, "a"); !ok { // promotes a
		t.Fatalf("expected hit on a")
	}
	_ = s.Set(ctx, "c", 3)

	if ok, _ := s.Contains(ctx, "b"); ok {
		t.Fatalf("expected b evicted")
	}
	if ok, _ := s.Contains(ctx, "a"); !ok {
		t.Fatalf("expected a retained")
	}
	if ok, _ := s.Contains(ctx, "c"); !ok {
		t.Fatalf("expected c retained")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestMemoryStoreEvictsExactlyLRU(t *testing.T) {
	ctx := context.Background()
	const n = 3
	s := NewMemory[int](WithMaxEntries[int](n))
	keys := []string{"k0", "k1", "k2", "k3"}
	for i, k := range keys {
		_ = s.Set(ctx, k, i)
	}
	if ok, _ := s.Contains(ctx, "k0"); ok {
		t.Fatalf("expected oldest key evicted")
	}
	for _, k := range keys[1:] {
		if ok, _ := s.Contains(ctx, k); !ok {
			t.Fatalf("expected %s retained", k)
		}
	}
	if s.Len() != n {
		t.Fatalf("size exceeded bound: %d", s.Len())
	}
}

func TestMemoryStoreUpsertMergesRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[merge.Value](WithMerge[merge.Value](merge.Variant{}))
	_ = s.Upsert(ctx, "k", merge.NewRecord(map[string]any{"a": 1}))
	_ = s.Upsert(ctx, "k", merge.NewRecord(map[string]any{"b": 2}))
	v, ok, _ := s.Get(ctx, "k")
	if !ok {
		t.Fatalf("expected hit")
	}
	want := map[string]any{"a": 1, "b": 2}
	if !reflect.DeepEqual(v.Record, want) {
		t.Fatalf("expected %v, got %v", want, v.Record)
	}
}

func TestMemoryStoreUpsertReplacesScalars(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[merge.Value](WithMerge[merge.Value](merge.Variant{}))
	_ = s.Upsert(ctx, "k", merge.NewScalar("x"))
	_ = s.Upsert(ctx, "k", merge.NewScalar("y"))
	v, ok, _ := s.Get(ctx, "k")
	if !ok || v.Scalar != "y" {
		t.Fatalf("expected y, got %v ok=%v", v.Scalar, ok)
	}
}

func TestMemoryStoreUpdateComposesAtomically(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[int]()
	_ = s.Set(ctx, "a", 1)
	err := s.Update(ctx, func(tx *Tx[int]) error {
		v, _ := tx.Get("a")
		tx.Set("b", v+1)
		tx.Delete("a")
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok, _ := s.Contains(ctx, "a"); ok {
		t.Fatalf("expected a deleted")
	}
	if v, ok, _ := s.Get(ctx, "b"); !ok || v != 2 {
		t.Fatalf("expected b=2, got %d ok=%v", v, ok)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[int]()
	_ = s.Set(ctx, "a", 1)
	_ = s.Set(ctx, "b", 2)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, len=%d", s.Len())
	}
}
