package protocol

import (
	"testing"

	"nwuledger/internal/ledger"
)

func TestSnapshotRoundTrip(t *testing.T) {
	c, _ := newTestCoordinator(t)

	record := submit(t, c)
	if _, err := c.VerifyContribution(verifier, record.ID, 85); err != nil {
		t.Fatalf("verify: %v", err)
	}

	data, err := c.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	fresh := newTestStore(t)

	restored, err := ImportSnapshot(fresh, data, Config{
		Admin:    admin,
		Treasury: treasury,
		Clock:    func() int64 { return 1_000 },
	}, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if restored.StateHash() != c.StateHash() {
		t.Error("restored state hash differs from source")
	}

	got, ok := restored.Contribution(record.ID)
	if !ok || got.Status != ledger.StatusVerified {
		t.Fatalf("restored contribution %+v ok=%v", got, ok)
	}
	if pending := restored.RewardAccount(contributor).Pending; pending != ledger.BaseReward*85/70 {
		t.Errorf("restored pending %d", pending)
	}

	// The restored ledger keeps working.
	if _, err := restored.ClaimReward(contributor); err != nil {
		t.Fatalf("claim on restored ledger: %v", err)
	}
}

func TestSnapshotRejectsCorruption(t *testing.T) {
	c, _ := newTestCoordinator(t)
	submit(t, c)

	data, err := c.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Flip a byte inside the compressed payload.
	corrupted := make([]byte, len(data))
	copy(corrupted, data)
	corrupted[len(corrupted)/2] ^= 0xff

	fresh := newTestStore(t)

	if _, err := ImportSnapshot(fresh, corrupted, Config{Treasury: treasury}, nil); err == nil {
		t.Fatal("corrupted snapshot must be rejected")
	}
}
