// Package roles implements the capability registry: a set of
// (identity, capability) pairs gating every mutating ledger operation.
package roles

import (
	"fmt"
	"sort"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/logger"
	"nwuledger/internal/storage"
)

// keyPrefix is the storage key prefix for role entries.
var keyPrefix = []byte("r:")

// Registry maps identities to their held capabilities.
// Not safe for concurrent use; the coordinator serializes access.
type Registry struct {
	db   *storage.Store
	held map[ledger.Identity]map[ledger.Capability]struct{}
}

// Load builds a Registry from persisted state.
func Load(db *storage.Store) (*Registry, error) {
	r := &Registry{
		db:   db,
		held: make(map[ledger.Identity]map[ledger.Capability]struct{}),
	}

	err := db.IteratePrefix(keyPrefix, func(key, value []byte) error {
		identity := ledger.Identity(key[len(keyPrefix):])

		caps, err := decodeCapabilities(value)
		if err != nil {
			return fmt.Errorf("decode roles for %s:\n%w", identity, err)
		}

		set := make(map[ledger.Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		r.held[identity] = set

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load roles:\n%w", err)
	}

	return r, nil
}

// Has reports whether identity holds the given capability.
// This is the authorization guard injected into every operation.
func (r *Registry) Has(identity ledger.Identity, cap ledger.Capability) bool {
	set, ok := r.held[identity]
	if !ok {
		return false
	}

	_, ok = set[cap]
	return ok
}

// Grant gives identity the capability. Only an admin may call.
// Granting an already-held capability is a tolerated no-op.
// Returns true if membership actually changed.
func (r *Registry) Grant(caller, identity ledger.Identity, cap ledger.Capability) (bool, error) {
	if !r.Has(caller, ledger.CapAdmin) {
		return false, fmt.Errorf("grant %s:\n%w", cap, ledger.ErrUnauthorized)
	}

	return r.grant(identity, cap)
}

// Bootstrap grants a capability without an authorization check.
// Used only at genesis, before any admin exists.
func (r *Registry) Bootstrap(identity ledger.Identity, cap ledger.Capability) error {
	_, err := r.grant(identity, cap)
	return err
}

// grant performs the unguarded grant.
func (r *Registry) grant(identity ledger.Identity, cap ledger.Capability) (bool, error) {
	set, ok := r.held[identity]
	if !ok {
		set = make(map[ledger.Capability]struct{})
		r.held[identity] = set
	}

	if _, exists := set[cap]; exists {
		return false, nil // idempotent
	}

	set[cap] = struct{}{}

	if err := r.persist(identity); err != nil {
		delete(set, cap)
		return false, err
	}

	return true, nil
}

// Revoke removes the capability from identity. Only an admin may call.
// Revoking an unheld capability is a tolerated no-op.
// Returns true if membership actually changed.
//
// There is no minimum-admin guard: revoking the last admin permanently
// locks out role management. Mirrors the source behavior; logged at Warn.
func (r *Registry) Revoke(caller, identity ledger.Identity, cap ledger.Capability) (bool, error) {
	if !r.Has(caller, ledger.CapAdmin) {
		return false, fmt.Errorf("revoke %s:\n%w", cap, ledger.ErrUnauthorized)
	}

	set, ok := r.held[identity]
	if !ok {
		return false, nil
	}

	if _, exists := set[cap]; !exists {
		return false, nil
	}

	if cap == ledger.CapAdmin && r.countHolders(ledger.CapAdmin) == 1 {
		logger.Warn("revoking the last admin capability", "identity", identity)
	}

	delete(set, cap)

	if err := r.persist(identity); err != nil {
		set[cap] = struct{}{}
		return false, err
	}

	return true, nil
}

// Holders returns the identities holding the given capability, sorted.
func (r *Registry) Holders(cap ledger.Capability) []ledger.Identity {
	var out []ledger.Identity
	for identity, set := range r.held {
		if _, ok := set[cap]; ok {
			out = append(out, identity)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// countHolders counts identities holding the given capability.
func (r *Registry) countHolders(cap ledger.Capability) int {
	n := 0
	for _, set := range r.held {
		if _, ok := set[cap]; ok {
			n++
		}
	}
	return n
}

// persist writes the identity's capability set to storage.
// An empty set deletes the entry.
func (r *Registry) persist(identity ledger.Identity) error {
	key := storageKey(identity)

	set := r.held[identity]
	if len(set) == 0 {
		delete(r.held, identity)
		return r.db.Delete(key)
	}

	return r.db.Set(key, encodeCapabilities(set))
}

// storageKey builds the storage key for an identity's role entry.
func storageKey(identity ledger.Identity) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(identity))
	key = append(key, keyPrefix...)
	key = append(key, identity...)
	return key
}

// encodeCapabilities encodes a capability set in sorted order.
func encodeCapabilities(set map[ledger.Capability]struct{}) []byte {
	caps := make([]string, 0, len(set))
	for c := range set {
		caps = append(caps, string(c))
	}
	sort.Strings(caps)

	w := codec.NewWriter(16 * len(caps))
	w.U32(uint32(len(caps)))
	for _, c := range caps {
		w.String(c)
	}

	return w.Bytes()
}

// decodeCapabilities decodes a persisted capability list.
func decodeCapabilities(data []byte) ([]ledger.Capability, error) {
	r := codec.NewReader(data)

	n := int(r.U32())
	caps := make([]ledger.Capability, 0, n)
	for i := 0; i < n; i++ {
		caps = append(caps, ledger.Capability(r.String()))
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return caps, nil
}
