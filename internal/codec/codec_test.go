package codec

import (
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.U64(math.MaxUint64)
	w.I64(-42)
	w.U32(7)
	w.Bool(true)
	w.Bool(false)
	w.String("Qm123")
	w.String("")

	r := NewReader(w.Bytes())

	if got := r.U64(); got != math.MaxUint64 {
		t.Errorf("u64: got %d", got)
	}
	if got := r.I64(); got != -42 {
		t.Errorf("i64: got %d", got)
	}
	if got := r.U32(); got != 7 {
		t.Errorf("u32: got %d", got)
	}
	if got := r.Bool(); !got {
		t.Error("bool: expected true")
	}
	if got := r.Bool(); got {
		t.Error("bool: expected false")
	}
	if got := r.String(); got != "Qm123" {
		t.Errorf("string: got %q", got)
	}
	if got := r.String(); got != "" {
		t.Errorf("empty string: got %q", got)
	}

	if err := r.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	encode := func() []byte {
		w := NewWriter(16)
		w.U64(100)
		w.String("abc")
		w.Bool(true)
		return w.Bytes()
	}

	a := encode()
	b := encode()

	if string(a) != string(b) {
		t.Error("same record should encode identically")
	}
}

func TestTruncated(t *testing.T) {
	w := NewWriter(16)
	w.U64(1)
	data := w.Bytes()

	r := NewReader(data[:4])
	_ = r.U64()

	if r.Err() == nil {
		t.Error("expected error on truncated input")
	}
}

func TestTruncatedString(t *testing.T) {
	w := NewWriter(16)
	w.String("hello")
	data := w.Bytes()

	// Cut into the string body
	r := NewReader(data[:6])
	got := r.String()

	if got != "" {
		t.Errorf("expected empty string on truncation, got %q", got)
	}

	if r.Err() == nil {
		t.Error("expected error on truncated string")
	}
}

func TestErrorSticks(t *testing.T) {
	r := NewReader(nil)
	_ = r.U64()

	first := r.Err()
	if first == nil {
		t.Fatal("expected error")
	}

	// Subsequent reads return zero values and keep the first error
	if got := r.U32(); got != 0 {
		t.Errorf("expected 0 after error, got %d", got)
	}

	if r.Err() != first {
		t.Error("error should not be replaced")
	}
}
