package vesting

import (
	"errors"
	"os"
	"testing"

	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
	"nwuledger/internal/token"
)

// allowAdmin authorizes only "root" as admin.
func allowAdmin(identity ledger.Identity, cap ledger.Capability) bool {
	return identity == "root" && cap == ledger.CapAdmin
}

// newTestLedger creates a funded vesting ledger over temporary storage.
// "root" starts with 1000 tokens to escrow from.
func newTestLedger(t *testing.T) (*Ledger, *token.Ledger, *storage.Store) {
	t.Helper()

	dir, err := os.MkdirTemp("", "vesting_test_*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := token.Load(db)
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}

	b := storage.NewBatch()
	if err := tokens.Mint(b, "root", 1000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	l, err := Load(db, allowAdmin, tokens)
	if err != nil {
		t.Fatalf("load vesting: %v", err)
	}

	return l, tokens, db
}

// create makes a schedule, failing the test on error.
func create(t *testing.T, l *Ledger, db *storage.Store, beneficiary ledger.Identity, amount ledger.Amount, duration, now int64) {
	t.Helper()

	b := storage.NewBatch()
	if err := l.CreateSchedule(b, "root", beneficiary, amount, duration, now); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestCreateEscrows(t *testing.T) {
	l, tokens, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 0)

	if got := tokens.Balance("root"); got != 900 {
		t.Errorf("expected 900 after escrow, got %d", got)
	}

	s, ok := l.Get("alice")
	if !ok {
		t.Fatal("schedule not found")
	}
	if s.Total != 100 || s.Released != 0 || s.Duration != 10 {
		t.Errorf("unexpected schedule: %+v", s)
	}
}

func TestCreateValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)

	tests := []struct {
		name     string
		caller   ledger.Identity
		amount   ledger.Amount
		duration int64
		want     error
	}{
		{"unauthorized", "mallory", 100, 10, ledger.ErrUnauthorized},
		{"zero amount", "root", 0, 10, ledger.ErrInvalidInput},
		{"zero duration", "root", 100, 0, ledger.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.CreateSchedule(storage.NewBatch(), tt.caller, "alice", tt.amount, tt.duration, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	l, _, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 0)

	err := l.CreateSchedule(storage.NewBatch(), "root", "alice", 50, 5, 0)
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCreateInsufficientEscrow(t *testing.T) {
	l, _, _ := newTestLedger(t)

	err := l.CreateSchedule(storage.NewBatch(), "root", "alice", 10_000, 10, 0)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, ok := l.Get("alice"); ok {
		t.Error("no schedule should exist after failed escrow")
	}
}

func TestReleaseLinear(t *testing.T) {
	l, tokens, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 0)

	// Halfway: 100 * 5 / 10 = 50
	b := storage.NewBatch()
	got, err := l.Release(b, "alice", 5)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got != 50 {
		t.Errorf("expected 50 released, got %d", got)
	}
	if tokens.Balance("alice") != 50 {
		t.Errorf("expected balance 50, got %d", tokens.Balance("alice"))
	}
}

func TestReleaseTruncates(t *testing.T) {
	l, _, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 3, 0)

	// 100 * 1 / 3 = 33 (truncated)
	b := storage.NewBatch()
	got, err := l.Release(b, "alice", 1)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got != 33 {
		t.Errorf("expected 33 (truncating division), got %d", got)
	}
}

func TestReleaseAtEnd(t *testing.T) {
	l, _, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 0)

	b := storage.NewBatch()
	if _, err := l.Release(b, "alice", 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// At elapsed == duration the full remainder is releasable
	b = storage.NewBatch()
	got, err := l.Release(b, "alice", 10)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	s, _ := l.Get("alice")
	if got != 100-40 {
		t.Errorf("expected remainder 60, got %d", got)
	}
	if s.Released != 100 {
		t.Errorf("expected fully released, got %d", s.Released)
	}
}

func TestReleaseNothingBeforeStart(t *testing.T) {
	l, _, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 50)

	_, err := l.Release(storage.NewBatch(), "alice", 49)
	if !errors.Is(err, ledger.ErrNothingToRelease) {
		t.Errorf("expected ErrNothingToRelease before start, got %v", err)
	}
}

func TestReleaseNoSchedule(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.Release(storage.NewBatch(), "ghost", 0)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestReleaseMonotonic drives a schedule through an arbitrary call
// sequence and checks released never decreases and never exceeds total.
func TestReleaseMonotonic(t *testing.T) {
	l, _, db := newTestLedger(t)

	const total = 777
	create(t, l, db, "alice", total, 100, 0)

	times := []int64{-5, 3, 3, 17, 17, 42, 41, 99, 100, 250}

	var prevReleased ledger.Amount
	for _, now := range times {
		b := storage.NewBatch()
		_, err := l.Release(b, "alice", now)
		if err != nil && !errors.Is(err, ledger.ErrNothingToRelease) {
			t.Fatalf("release at %d: %v", now, err)
		}
		if err == nil {
			if err := db.Commit(b); err != nil {
				t.Fatalf("commit: %v", err)
			}
		}

		s, _ := l.Get("alice")
		if s.Released < prevReleased {
			t.Fatalf("released decreased: %d -> %d", prevReleased, s.Released)
		}
		if s.Released > total {
			t.Fatalf("released %d exceeds total %d", s.Released, total)
		}
		prevReleased = s.Released
	}

	s, _ := l.Get("alice")
	if s.Released != total {
		t.Errorf("expected fully released at end, got %d", s.Released)
	}
}

// TestReleaseLargeGrant covers grants where total * elapsed exceeds 64
// bits: the interpolation must stay exact and monotone instead of
// wrapping and underflowing the release amount.
func TestReleaseLargeGrant(t *testing.T) {
	dir, err := os.MkdirTemp("", "vesting_large_*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := token.Load(db)
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}

	const total = ledger.Amount(10_000_000_000_000)
	const duration = int64(31_536_000) // one year in seconds

	b := storage.NewBatch()
	if err := tokens.Mint(b, "root", 2*total); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	l, err := Load(db, allowAdmin, tokens)
	if err != nil {
		t.Fatalf("load vesting: %v", err)
	}

	create(t, l, db, "alice", total, duration, 0)

	b = storage.NewBatch()
	first, err := l.Release(b, "alice", 1_800_000)
	if err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// 10^13 * 1_800_000 / 31_536_000, exact
	if first != 570_776_255_707 {
		t.Errorf("first release %d, expected 570776255707", first)
	}

	b = storage.NewBatch()
	second, err := l.Release(b, "alice", 2_000_000)
	if err != nil {
		t.Fatalf("second release: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// 10^13 * 2_000_000 overflows uint64; the 128-bit path yields
	// vested 634_195_839_675 and the delta below.
	if second != 63_419_583_968 {
		t.Errorf("second release %d, expected 63419583968", second)
	}

	s, _ := l.Get("alice")
	if s.Released > total {
		t.Fatalf("released %d exceeds total %d", s.Released, total)
	}
	if got := tokens.Balance("alice"); got != first+second {
		t.Errorf("balance %d, expected %d", got, first+second)
	}

	// Revoke settles the rest exactly: vested-unreleased to alice,
	// unvested remainder back to root.
	b = storage.NewBatch()
	if err := l.Revoke(b, "root", "alice", 2_100_000); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	vested := VestedAmount(total, 0, duration, 2_100_000)
	if got := tokens.Balance("alice"); got != vested {
		t.Errorf("alice balance %d, expected vested %d", got, vested)
	}
	if got := tokens.Balance("root"); got != 2*total-vested {
		t.Errorf("root balance %d, expected %d", got, 2*total-vested)
	}
}

// TestVestedAmountLargeGrant sweeps a year-long 10^13 grant and checks
// monotonicity where the naive product would wrap.
func TestVestedAmountLargeGrant(t *testing.T) {
	const total = ledger.Amount(10_000_000_000_000)
	const duration = int64(31_536_000)

	var prev ledger.Amount
	for now := int64(0); now <= duration+100_000; now += 100_000 {
		v := VestedAmount(total, 0, duration, now)

		if v < prev {
			t.Fatalf("vested decreased at %d: %d -> %d", now, prev, v)
		}
		if v > total {
			t.Fatalf("vested %d exceeds total at %d", v, now)
		}

		prev = v
	}

	if prev != total {
		t.Errorf("expected total vested at end, got %d", prev)
	}
}

func TestVestedAmountProperties(t *testing.T) {
	const total = 1000
	const start = 100
	const duration = 60

	var prev ledger.Amount
	for now := int64(0); now <= 300; now++ {
		v := VestedAmount(total, start, duration, now)

		if v < prev {
			t.Fatalf("vested decreased at %d: %d -> %d", now, prev, v)
		}
		if v > total {
			t.Fatalf("vested %d exceeds total at %d", v, now)
		}

		switch {
		case now < start:
			if v != 0 {
				t.Fatalf("expected 0 before start, got %d at %d", v, now)
			}
		case now >= start+duration:
			if v != total {
				t.Fatalf("expected total after end, got %d at %d", v, now)
			}
		}

		prev = v
	}
}

func TestRevoke(t *testing.T) {
	l, tokens, db := newTestLedger(t)

	create(t, l, db, "alice", 100, 10, 0)

	// Revoke halfway: 50 vested to alice, 50 back to root
	b := storage.NewBatch()
	if err := l.Revoke(b, "root", "alice", 5); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := tokens.Balance("alice"); got != 50 {
		t.Errorf("alice: expected 50, got %d", got)
	}
	if got := tokens.Balance("root"); got != 950 {
		t.Errorf("root: expected 950, got %d", got)
	}

	// Nothing further releasable
	_, err := l.Release(storage.NewBatch(), "alice", 100)
	if !errors.Is(err, ledger.ErrNothingToRelease) {
		t.Errorf("expected ErrNothingToRelease after revoke, got %v", err)
	}

	// Double revoke conflicts
	err = l.Revoke(storage.NewBatch(), "root", "alice", 6)
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestReload(t *testing.T) {
	dir, err := os.MkdirTemp("", "vesting_reload_*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	tokens, err := token.Load(db)
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}

	b := storage.NewBatch()
	if err := tokens.Mint(b, "root", 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	l, err := Load(db, allowAdmin, tokens)
	if err != nil {
		t.Fatalf("load vesting: %v", err)
	}

	b = storage.NewBatch()
	if err := l.CreateSchedule(b, "root", "alice", 200, 20, 7); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { db2.Close() })

	tokens2, err := token.Load(db2)
	if err != nil {
		t.Fatalf("reload tokens: %v", err)
	}

	l2, err := Load(db2, allowAdmin, tokens2)
	if err != nil {
		t.Fatalf("reload vesting: %v", err)
	}

	s, ok := l2.Get("alice")
	if !ok {
		t.Fatal("schedule lost on reload")
	}
	if s.Total != 200 || s.Start != 7 || s.Duration != 20 {
		t.Errorf("schedule fields lost: %+v", s)
	}
}
