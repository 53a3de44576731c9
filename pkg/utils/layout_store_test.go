package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "layoutstore-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Logf("Error removing temp dir: %v", err)
		}
	}()

	dbPath := filepath.Join(tmpDir, "layouts.db")
	store, err := OpenLayoutStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to open LayoutStore: %v", err)
	}

	testLayoutStoreBasic(t, store)
	testLayoutStoreBatch(t, store)
	testLayoutStoreDelete(t, store)

	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	testLayoutStorePersistence(t, dbPath)
}

func testLayoutStoreBasic(t *testing.T, store *LayoutStore) {
	val := []byte(`{"type":"FeatureCollection","features":[]}`)
	if err := store.Put("ward-a", val); err != nil {
		t.Errorf("Put failed: %v", err)
	}

	res, err := store.Get("ward-a")
	if err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if !bytes.Equal(res, val) {
		t.Errorf("Get mismatch: got %s, want %s", res, val)
	}

	// Overwrite must not be masked by the read cache.
	val2 := []byte(`{"type":"FeatureCollection","features":[{}]}`)
	if err := store.Put("ward-a", val2); err != nil {
		t.Errorf("Put overwrite failed: %v", err)
	}
	res, _ = store.Get("ward-a")
	if !bytes.Equal(res, val2) {
		t.Errorf("Get after overwrite: got %s, want %s", res, val2)
	}
}

func testLayoutStoreBatch(t *testing.T, store *LayoutStore) {
	batch := map[string][]byte{
		"icu-1": []byte("one"),
		"icu-2": []byte("two"),
	}
	if err := store.PutBatch(batch); err != nil {
		t.Errorf("PutBatch failed: %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Errorf("List failed: %v", err)
	}
	want := []string{"icu-1", "icu-2", "ward-a"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("List = %v, want %v", names, want)
	}
}

func testLayoutStoreDelete(t *testing.T, store *LayoutStore) {
	if err := store.Delete("icu-2"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := store.Get("icu-2"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("Get after delete: got %v, want ErrLayoutNotFound", err)
	}
}

func testLayoutStorePersistence(t *testing.T, dbPath string) {
	store, err := OpenLayoutStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen LayoutStore: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Logf("Error closing store: %v", err)
		}
	}()

	res, err := store.Get("icu-1")
	if err != nil {
		t.Errorf("Get after reopen failed: %v", err)
	}
	if string(res) != "one" {
		t.Errorf("Persistence mismatch: got %q, want %q", res, "one")
	}
}

func TestLayoutStoreBadNames(t *testing.T) {
	store, err := OpenMemoryLayoutStore()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Logf("Error closing store: %v", err)
		}
	}()

	for _, name := range []string{"", "a/b", "nul\x00"} {
		if err := store.Put(name, []byte("x")); !errors.Is(err, ErrBadLayoutName) {
			t.Errorf("Put(%q) = %v, want ErrBadLayoutName", name, err)
		}
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("Get(missing) = %v, want ErrLayoutNotFound", err)
	}
}

func BenchmarkLayoutStoreGet(b *testing.B) {
	store, err := OpenMemoryLayoutStore()
	if err != nil {
		b.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			b.Logf("Error closing store: %v", err)
		}
	}()

	for i := 0; i < 100; i++ {
		if err := store.Put(fmt.Sprintf("room-%03d", i), []byte("val")); err != nil {
			b.Fatalf("Failed to put: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get(fmt.Sprintf("room-%03d", i%100))
	}
}
