// Package verify implements the verification registry: at most one quality
// assessment per contribution, recorded by an authorized verifier.
package verify

import (
	"encoding/binary"
	"fmt"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
)

// keyPrefix is the storage key prefix for verification records.
var keyPrefix = []byte("v:")

// Verification is an immutable quality assessment of a contribution.
type Verification struct {
	ContributionID ledger.ContributionID
	ContentID      string
	Score          int
	Timestamp      int64
	Contributor    ledger.Identity
	Verifier       ledger.Identity
	Passed         bool
}

// Registry owns all verification records.
// Not safe for concurrent use; the coordinator serializes access.
type Registry struct {
	db            *storage.Store
	auth          ledger.AuthFunc
	records       map[ledger.ContributionID]Verification
	byContributor map[ledger.Identity][]ledger.ContributionID
}

// Load builds a Registry from persisted state with the given guard.
func Load(db *storage.Store, auth ledger.AuthFunc) (*Registry, error) {
	r := &Registry{
		db:            db,
		auth:          auth,
		records:       make(map[ledger.ContributionID]Verification),
		byContributor: make(map[ledger.Identity][]ledger.ContributionID),
	}

	// Keys are big-endian ids, so records arrive in id order and the
	// per-contributor lists come out ordered for free.
	err := db.IteratePrefix(keyPrefix, func(key, value []byte) error {
		v, err := decodeVerification(value)
		if err != nil {
			return err
		}

		r.records[v.ContributionID] = v
		r.byContributor[v.Contributor] = append(r.byContributor[v.Contributor], v.ContributionID)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load verifications:\n%w", err)
	}

	return r, nil
}

// Record persists a verification outcome for a contribution.
// The caller must hold the verifier capability, the score must be in
// 0..=100, and the contribution must not already have a verification.
// Passed is derived from the protocol threshold. The single write is the
// only side effect; certification and reward orchestration live in the
// coordinator.
func (r *Registry) Record(b *storage.Batch, caller ledger.Identity, contributionID ledger.ContributionID, contentID string, score int, contributor ledger.Identity, now int64) (Verification, error) {
	if !r.auth(caller, ledger.CapVerifier) {
		return Verification{}, fmt.Errorf("record verification:\n%w", ledger.ErrUnauthorized)
	}

	if score < 0 || score > ledger.MaxScore {
		return Verification{}, fmt.Errorf("record verification: score %d:\n%w", score, ledger.ErrScoreOutOfRange)
	}

	if _, exists := r.records[contributionID]; exists {
		return Verification{}, fmt.Errorf("record verification for %d:\n%w", contributionID, ledger.ErrDuplicateVerification)
	}

	v := Verification{
		ContributionID: contributionID,
		ContentID:      contentID,
		Score:          score,
		Timestamp:      now,
		Contributor:    contributor,
		Verifier:       caller,
		Passed:         score >= ledger.VerificationThreshold,
	}

	r.records[contributionID] = v
	r.byContributor[contributor] = append(r.byContributor[contributor], contributionID)

	b.Set(recordKey(contributionID), encodeVerification(v))

	return v, nil
}

// Get returns the verification for a contribution.
func (r *Registry) Get(contributionID ledger.ContributionID) (Verification, bool) {
	v, ok := r.records[contributionID]
	return v, ok
}

// Count returns the total number of verification records.
func (r *Registry) Count() uint64 {
	return uint64(len(r.records))
}

// StatsFor aggregates a contributor's verifications: total count, passing
// count, and the integer average score. All zeros for a contributor with
// no verifications.
func (r *Registry) StatsFor(contributor ledger.Identity) (total, verifiedCount, averageScore int) {
	ids := r.byContributor[contributor]
	if len(ids) == 0 {
		return 0, 0, 0
	}

	sum := 0
	for _, id := range ids {
		v := r.records[id]
		sum += v.Score
		if v.Passed {
			verifiedCount++
		}
	}

	total = len(ids)
	averageScore = sum / total // integer division, matches source arithmetic

	return total, verifiedCount, averageScore
}

// ForContributor returns the contribution ids verified for a contributor,
// in ascending order.
func (r *Registry) ForContributor(contributor ledger.Identity) []ledger.ContributionID {
	ids := r.byContributor[contributor]
	out := make([]ledger.ContributionID, len(ids))
	copy(out, ids)
	return out
}

// recordKey builds the storage key for a verification (big-endian id).
func recordKey(id ledger.ContributionID) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], id)
	return key
}

// encodeVerification encodes a verification record.
func encodeVerification(v Verification) []byte {
	w := codec.NewWriter(64 + len(v.ContentID))
	w.U64(v.ContributionID)
	w.String(v.ContentID)
	w.U32(uint32(v.Score))
	w.I64(v.Timestamp)
	w.String(string(v.Contributor))
	w.String(string(v.Verifier))
	w.Bool(v.Passed)
	return w.Bytes()
}

// decodeVerification decodes a verification record.
func decodeVerification(data []byte) (Verification, error) {
	r := codec.NewReader(data)
	v := Verification{
		ContributionID: r.U64(),
		ContentID:      r.String(),
		Score:          int(r.U32()),
		Timestamp:      r.I64(),
		Contributor:    ledger.Identity(r.String()),
		Verifier:       ledger.Identity(r.String()),
		Passed:         r.Bool(),
	}

	if err := r.Err(); err != nil {
		return Verification{}, fmt.Errorf("decode verification:\n%w", err)
	}

	return v, nil
}
