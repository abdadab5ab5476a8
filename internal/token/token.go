// Package token implements the fungible balance store the reward and
// vesting ledgers move value through. It is pure mechanism: capability
// checks happen at the coordinator boundary.
package token

import (
	"fmt"
	"sort"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
)

// Storage key prefixes.
var (
	keyPrefix = []byte("b:")       // balance per identity
	supplyKey = []byte("m:supply") // total minted supply
)

// Ledger tracks fungible token balances per identity.
// Not safe for concurrent use; the coordinator serializes access.
type Ledger struct {
	db       *storage.Store
	balances map[ledger.Identity]ledger.Amount
	supply   ledger.Amount
}

// Load builds a Ledger from persisted state.
func Load(db *storage.Store) (*Ledger, error) {
	l := &Ledger{
		db:       db,
		balances: make(map[ledger.Identity]ledger.Amount),
	}

	err := db.IteratePrefix(keyPrefix, func(key, value []byte) error {
		identity := ledger.Identity(key[len(keyPrefix):])

		r := codec.NewReader(value)
		amount := r.U64()
		if err := r.Err(); err != nil {
			return fmt.Errorf("decode balance for %s:\n%w", identity, err)
		}

		l.balances[identity] = amount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load balances:\n%w", err)
	}

	raw, err := db.Get(supplyKey)
	if err != nil {
		return nil, fmt.Errorf("load supply:\n%w", err)
	}
	if raw != nil {
		r := codec.NewReader(raw)
		l.supply = r.U64()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("decode supply:\n%w", err)
		}
	}

	return l, nil
}

// Balance returns the identity's balance. Zero for unknown identities.
func (l *Ledger) Balance(identity ledger.Identity) ledger.Amount {
	return l.balances[identity]
}

// TotalSupply returns the total minted amount.
func (l *Ledger) TotalSupply() ledger.Amount {
	return l.supply
}

// Mint creates amount new tokens in to's balance.
func (l *Ledger) Mint(b *storage.Batch, to ledger.Identity, amount ledger.Amount) error {
	if amount == 0 {
		return fmt.Errorf("mint:\n%w", ledger.ErrInvalidInput)
	}

	l.balances[to] += amount
	l.supply += amount

	l.stage(b, to)
	l.stageSupply(b)

	return nil
}

// Transfer moves amount from one identity to another.
// Fails with ErrInsufficientFunds before any state change.
func (l *Ledger) Transfer(b *storage.Batch, from, to ledger.Identity, amount ledger.Amount) error {
	if err := l.Debit(b, from, amount); err != nil {
		return err
	}

	l.Credit(b, to, amount)

	return nil
}

// Debit removes amount from the identity's balance.
func (l *Ledger) Debit(b *storage.Batch, from ledger.Identity, amount ledger.Amount) error {
	balance := l.balances[from]
	if balance < amount {
		return fmt.Errorf("debit %d from %s (balance %d):\n%w", amount, from, balance, ledger.ErrInsufficientFunds)
	}

	l.balances[from] = balance - amount
	l.stage(b, from)

	return nil
}

// Credit adds amount to the identity's balance.
func (l *Ledger) Credit(b *storage.Batch, to ledger.Identity, amount ledger.Amount) {
	l.balances[to] += amount
	l.stage(b, to)
}

// Identities returns all identities with a balance entry, sorted.
func (l *Ledger) Identities() []ledger.Identity {
	out := make([]ledger.Identity, 0, len(l.balances))
	for identity := range l.balances {
		out = append(out, identity)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// stage appends the identity's balance write to the batch.
func (l *Ledger) stage(b *storage.Batch, identity ledger.Identity) {
	w := codec.NewWriter(8)
	w.U64(l.balances[identity])
	b.Set(balanceKey(identity), w.Bytes())
}

// stageSupply appends the supply write to the batch.
func (l *Ledger) stageSupply(b *storage.Batch) {
	w := codec.NewWriter(8)
	w.U64(l.supply)
	b.Set(supplyKey, w.Bytes())
}

// balanceKey builds the storage key for an identity's balance.
func balanceKey(identity ledger.Identity) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(identity))
	key = append(key, keyPrefix...)
	key = append(key, identity...)
	return key
}
