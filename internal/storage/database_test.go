package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func TestDBRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "flashdeck.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	if _, ok, err := db.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := db.Put(ctx, "deck", []byte(`{"cards":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Put(ctx, "deck", []byte(`{"cards":[1]}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, ok, err := db.Get(ctx, "deck")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"cards":[1]}` {
		t.Errorf("Expected latest value, but got %s", got)
	}

	if err := db.Delete(ctx, "deck"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := db.Get(ctx, "deck"); ok {
		t.Error("Expected key to be gone after delete")
	}
}

func TestDBPersistsAcrossOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flashdeck.db")
	ctx := context.Background()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put(ctx, "deck", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = db.Close()

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	got, ok, err := db.Get(ctx, "deck")
	if err != nil || !ok || string(got) != "v1" {
		t.Errorf("Expected v1 after reopen, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestDBInMemoryKeepsSchema(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("deck-%d", i)
			if err := db.Put(ctx, key, []byte("v")); err != nil {
				errs <- err
				return
			}
			if _, ok, err := db.Get(ctx, key); err != nil || !ok {
				errs <- fmt.Errorf("get %s: ok=%v err=%v", key, ok, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	buf := []byte("abc")
	_ = m.Put(ctx, "k", buf)
	buf[0] = 'x'

	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != "abc" {
		t.Errorf("Expected stored copy 'abc', but got %q", got)
	}
}
