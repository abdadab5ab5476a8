package storage

import (
	"bytes"
	"fmt"
	"os"
	"testing"
)

// newTestStore creates a temporary store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestSetGet(t *testing.T) {
	s := newTestStore(t)

	key := []byte("k1")
	value := []byte("v1")

	if err := s.Set(key, value); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("expected %q, got %q", value, got)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got != nil {
		t.Errorf("expected nil for missing key, got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	key := []byte("k1")
	if err := s.Set(key, []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestApply(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set([]byte("old"), []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}

	pairs := []KeyValue{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("old"), Value: nil}, // delete
	}

	if err := s.Apply(pairs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _ := s.Get([]byte("a"))
	if !bytes.Equal(got, []byte("1")) {
		t.Errorf("expected 1, got %q", got)
	}

	got, _ = s.Get([]byte("old"))
	if got != nil {
		t.Error("expected old key deleted")
	}
}

func TestIteratePrefix(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("p:%d", i)
		if err := s.Set([]byte(key), []byte{byte(i)}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	if err := s.Set([]byte("q:0"), []byte{0xff}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var keys []string
	err := s.IteratePrefix([]byte("p:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(keys) != 5 {
		t.Errorf("expected 5 keys, got %d: %v", len(keys), keys)
	}

	// Lexicographic order
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys out of order: %v", keys)
		}
	}
}

func TestIterateStopsOnError(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Set([]byte{byte(i)}, []byte{byte(i)}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	wantErr := fmt.Errorf("stop")
	count := 0

	err := s.Iterate(func(key, value []byte) error {
		count++
		return wantErr
	})

	if err != wantErr {
		t.Errorf("expected stop error, got %v", err)
	}

	if count != 1 {
		t.Errorf("expected 1 visit, got %d", count)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("a"), []byte("b")},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
	}

	for _, tt := range tests {
		got := prefixUpperBound(tt.prefix)

		if tt.want == nil {
			if got != nil {
				t.Errorf("prefix %x: expected nil, got %x", tt.prefix, got)
			}
			continue
		}

		// Compare only the significant leading bytes
		if !bytes.HasPrefix(got, tt.want[:1]) {
			t.Errorf("prefix %x: expected leading %x, got %x", tt.prefix, tt.want, got)
		}
	}
}

func TestReopenPersists(t *testing.T) {
	dir, err := os.MkdirTemp("", "storage_reopen_*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { s2.Close() })

	got, err := s2.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("expected v after reopen, got %q", got)
	}
}
