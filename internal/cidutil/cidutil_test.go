package cidutil

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	a := Derive([]byte("artifact"))
	b := Derive([]byte("artifact"))

	if a == "" {
		t.Fatal("expected non-empty CID")
	}
	if a != b {
		t.Error("same bytes should derive the same CID")
	}

	if Derive([]byte("other")) == a {
		t.Error("different bytes should derive different CIDs")
	}
}

func TestDeriveIsValidCID(t *testing.T) {
	s := Derive([]byte("artifact"))

	if !IsCID(s) {
		t.Errorf("derived identifier should parse as CID: %s", s)
	}
}

// TestOpaqueIdentifiersAccepted covers the legacy fixture used throughout
// the gateway: short hash-like strings are not CIDs but stay usable.
func TestOpaqueIdentifiersAccepted(t *testing.T) {
	if IsCID("Qm123") {
		t.Error("Qm123 is not a parseable CID")
	}

	if got := Normalize("Qm123"); got != "Qm123" {
		t.Errorf("opaque identifier must pass through unchanged, got %s", got)
	}
}

func TestNormalizeCanonical(t *testing.T) {
	s := Derive([]byte("artifact"))

	if got := Normalize(s); got != s {
		t.Errorf("canonical CID should normalize to itself, got %s", got)
	}
}
