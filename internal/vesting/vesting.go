// Package vesting implements linear-release token grants. Escrowed amounts
// vest linearly between start and start+duration; vested amounts round
// down (truncating division), so the ledger never over-releases.
package vesting

import (
	"fmt"
	"math/bits"
	"sort"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
	"nwuledger/internal/token"
)

// keyPrefix is the storage key prefix for vesting schedules.
var keyPrefix = []byte("g:")

// Schedule is a linear vesting grant for one beneficiary.
// At most one schedule exists per beneficiary.
type Schedule struct {
	Beneficiary ledger.Identity
	Total       ledger.Amount
	Released    ledger.Amount
	Start       int64
	Duration    int64
	Revoked     bool
}

// Ledger owns all vesting schedules.
// Not safe for concurrent use; the coordinator serializes access.
type Ledger struct {
	db        *storage.Store
	auth      ledger.AuthFunc
	tokens    *token.Ledger
	schedules map[ledger.Identity]Schedule
}

// Load builds a Ledger from persisted state.
func Load(db *storage.Store, auth ledger.AuthFunc, tokens *token.Ledger) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		auth:      auth,
		tokens:    tokens,
		schedules: make(map[ledger.Identity]Schedule),
	}

	err := db.IteratePrefix(keyPrefix, func(key, value []byte) error {
		s, err := decodeSchedule(value)
		if err != nil {
			return err
		}

		l.schedules[s.Beneficiary] = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load vesting schedules:\n%w", err)
	}

	return l, nil
}

// CreateSchedule escrows amount out of the caller's balance into a new
// schedule starting now. The caller must hold the admin capability;
// amount and duration must be nonzero; the beneficiary must not already
// have a schedule.
func (l *Ledger) CreateSchedule(b *storage.Batch, caller, beneficiary ledger.Identity, amount ledger.Amount, duration int64, now int64) error {
	if !l.auth(caller, ledger.CapAdmin) {
		return fmt.Errorf("create schedule:\n%w", ledger.ErrUnauthorized)
	}

	if amount == 0 || duration <= 0 {
		return fmt.Errorf("create schedule: amount %d, duration %d:\n%w", amount, duration, ledger.ErrInvalidInput)
	}

	if _, exists := l.schedules[beneficiary]; exists {
		return fmt.Errorf("create schedule for %s:\n%w", beneficiary, ledger.ErrScheduleExists)
	}

	if err := l.tokens.Debit(b, caller, amount); err != nil {
		return fmt.Errorf("escrow %d:\n%w", amount, err)
	}

	s := Schedule{
		Beneficiary: beneficiary,
		Total:       amount,
		Start:       now,
		Duration:    duration,
	}

	l.schedules[beneficiary] = s
	b.Set(scheduleKey(beneficiary), encodeSchedule(s))

	return nil
}

// Release transfers the currently releasable amount to the beneficiary.
// Fails with ErrNothingToRelease if nothing has vested since the last
// release or the schedule was revoked. Returns the released amount.
func (l *Ledger) Release(b *storage.Batch, beneficiary ledger.Identity, now int64) (ledger.Amount, error) {
	s, ok := l.schedules[beneficiary]
	if !ok {
		return 0, fmt.Errorf("release for %s:\n%w", beneficiary, ledger.ErrNotFound)
	}

	if s.Revoked {
		return 0, fmt.Errorf("release for %s: schedule revoked:\n%w", beneficiary, ledger.ErrNothingToRelease)
	}

	vested := VestedAmount(s.Total, s.Start, s.Duration, now)

	// vested can trail Released if the clock moved backwards; treat that
	// as nothing new vested rather than underflowing.
	var releasable ledger.Amount
	if vested > s.Released {
		releasable = vested - s.Released
	}
	if releasable == 0 {
		return 0, fmt.Errorf("release for %s:\n%w", beneficiary, ledger.ErrNothingToRelease)
	}

	s.Released += releasable
	l.schedules[beneficiary] = s

	l.tokens.Credit(b, beneficiary, releasable)
	b.Set(scheduleKey(beneficiary), encodeSchedule(s))

	return releasable, nil
}

// Revoke terminates a schedule. The vested-but-unreleased portion is paid
// out to the beneficiary; the unvested remainder returns to the caller.
// The schedule stays on record (revoked) so a replacement cannot be
// created for the same beneficiary.
func (l *Ledger) Revoke(b *storage.Batch, caller, beneficiary ledger.Identity, now int64) error {
	if !l.auth(caller, ledger.CapAdmin) {
		return fmt.Errorf("revoke schedule:\n%w", ledger.ErrUnauthorized)
	}

	s, ok := l.schedules[beneficiary]
	if !ok {
		return fmt.Errorf("revoke schedule for %s:\n%w", beneficiary, ledger.ErrNotFound)
	}

	if s.Revoked {
		return fmt.Errorf("revoke schedule for %s:\n%w", beneficiary, ledger.ErrConflict)
	}

	vested := VestedAmount(s.Total, s.Start, s.Duration, now)
	if vested < s.Released {
		vested = s.Released
	}

	payout := vested - s.Released
	remainder := s.Total - vested

	if payout > 0 {
		l.tokens.Credit(b, beneficiary, payout)
	}
	if remainder > 0 {
		l.tokens.Credit(b, caller, remainder)
	}

	s.Released = vested
	s.Revoked = true
	l.schedules[beneficiary] = s

	b.Set(scheduleKey(beneficiary), encodeSchedule(s))

	return nil
}

// Get returns the schedule for a beneficiary.
func (l *Ledger) Get(beneficiary ledger.Identity) (Schedule, bool) {
	s, ok := l.schedules[beneficiary]
	return s, ok
}

// Beneficiaries returns all identities with a schedule, sorted.
func (l *Ledger) Beneficiaries() []ledger.Identity {
	out := make([]ledger.Identity, 0, len(l.schedules))
	for identity := range l.schedules {
		out = append(out, identity)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// VestedAmount computes the amount vested at the given time: zero before
// start, the full total at or after start+duration, and linear in between
// with truncating division.
func VestedAmount(total ledger.Amount, start, duration, now int64) ledger.Amount {
	if now < start {
		return 0
	}

	elapsed := now - start
	if elapsed >= duration {
		return total
	}

	// 128-bit intermediate: total * elapsed exceeds 64 bits for large
	// grants over long schedules. elapsed < duration keeps the quotient
	// below total, so Div64 cannot overflow.
	hi, lo := bits.Mul64(total, uint64(elapsed))
	vested, _ := bits.Div64(hi, lo, uint64(duration))

	return vested
}

// scheduleKey builds the storage key for a beneficiary's schedule.
func scheduleKey(beneficiary ledger.Identity) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(beneficiary))
	key = append(key, keyPrefix...)
	key = append(key, beneficiary...)
	return key
}

// encodeSchedule encodes a vesting schedule.
func encodeSchedule(s Schedule) []byte {
	w := codec.NewWriter(64)
	w.String(string(s.Beneficiary))
	w.U64(s.Total)
	w.U64(s.Released)
	w.I64(s.Start)
	w.I64(s.Duration)
	w.Bool(s.Revoked)
	return w.Bytes()
}

// decodeSchedule decodes a vesting schedule.
func decodeSchedule(data []byte) (Schedule, error) {
	r := codec.NewReader(data)
	s := Schedule{
		Beneficiary: ledger.Identity(r.String()),
		Total:       r.U64(),
		Released:    r.U64(),
		Start:       r.I64(),
		Duration:    r.I64(),
		Revoked:     r.Bool(),
	}

	if err := r.Err(); err != nil {
		return Schedule{}, fmt.Errorf("decode schedule:\n%w", err)
	}

	return s, nil
}
