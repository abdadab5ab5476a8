// Package rewards implements the quality-scaled reward ledger: pending
// balances accumulate per contributor and are released in full on claim.
package rewards

import (
	"fmt"
	"sort"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
	"nwuledger/internal/token"
)

// Storage keys.
var (
	keyPrefix      = []byte("a:")            // reward accounts by contributor
	distributedKey = []byte("m:distributed") // protocol-wide total distributed
)

// Account tracks one contributor's reward balances. Both fields only ever
// grow, except that a claim atomically moves pending into claimed.
type Account struct {
	Pending ledger.Amount
	Claimed ledger.Amount
}

// Ledger owns all reward accounts.
// Not safe for concurrent use; the coordinator serializes access.
type Ledger struct {
	db          *storage.Store
	auth        ledger.AuthFunc
	tokens      *token.Ledger
	accounts    map[ledger.Identity]Account
	distributed ledger.Amount
}

// Load builds a Ledger from persisted state.
func Load(db *storage.Store, auth ledger.AuthFunc, tokens *token.Ledger) (*Ledger, error) {
	l := &Ledger{
		db:       db,
		auth:     auth,
		tokens:   tokens,
		accounts: make(map[ledger.Identity]Account),
	}

	err := db.IteratePrefix(keyPrefix, func(key, value []byte) error {
		identity := ledger.Identity(key[len(keyPrefix):])

		r := codec.NewReader(value)
		account := Account{
			Pending: r.U64(),
			Claimed: r.U64(),
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("decode reward account for %s:\n%w", identity, err)
		}

		l.accounts[identity] = account
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reward accounts:\n%w", err)
	}

	raw, err := db.Get(distributedKey)
	if err != nil {
		return nil, fmt.Errorf("load total distributed:\n%w", err)
	}
	if raw != nil {
		r := codec.NewReader(raw)
		l.distributed = r.U64()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("decode total distributed:\n%w", err)
		}
	}

	return l, nil
}

// CalculateReward computes the reward for a quality score:
// BaseReward * score / MinRewardScore, with truncating integer division.
// The truncation is deliberate and bit-compatible with the source system.
func CalculateReward(score int) (ledger.Amount, error) {
	if score < ledger.MinRewardScore {
		return 0, fmt.Errorf("calculate reward: score %d:\n%w", score, ledger.ErrScoreTooLow)
	}

	if score > ledger.MaxScore {
		return 0, fmt.Errorf("calculate reward: score %d:\n%w", score, ledger.ErrScoreInvalid)
	}

	return ledger.BaseReward * ledger.Amount(score) / ledger.MinRewardScore, nil
}

// Allocate adds the reward for score to the contributor's pending balance.
// The caller must hold the distributor capability. Multiple allocations
// simply accumulate. Returns the allocated amount.
func (l *Ledger) Allocate(b *storage.Batch, caller, contributor ledger.Identity, score int) (ledger.Amount, error) {
	if !l.auth(caller, ledger.CapDistributor) {
		return 0, fmt.Errorf("allocate reward:\n%w", ledger.ErrUnauthorized)
	}

	amount, err := CalculateReward(score)
	if err != nil {
		return 0, err
	}

	account := l.accounts[contributor]
	account.Pending += amount
	l.accounts[contributor] = account

	l.stage(b, contributor)

	return amount, nil
}

// Claim moves the contributor's full pending balance into claimed and
// issues the tokens. Bookkeeping and transfer land in the same batch, so
// no state is observable where one succeeded without the other.
// Returns the claimed amount.
func (l *Ledger) Claim(b *storage.Batch, contributor ledger.Identity) (ledger.Amount, error) {
	account := l.accounts[contributor]
	if account.Pending == 0 {
		return 0, fmt.Errorf("claim for %s:\n%w", contributor, ledger.ErrNothingToClaim)
	}

	amount := account.Pending
	account.Pending = 0
	account.Claimed += amount
	l.accounts[contributor] = account
	l.distributed += amount

	// Rewards are issuance: claimed tokens are minted, not moved from a
	// prefunded pool, so a claim can never fail on pool balance.
	if err := l.tokens.Mint(b, contributor, amount); err != nil {
		return 0, fmt.Errorf("issue reward:\n%w", err)
	}

	l.stage(b, contributor)
	l.stageDistributed(b)

	return amount, nil
}

// AccountFor returns the contributor's reward account.
// A zero account for unknown contributors.
func (l *Ledger) AccountFor(contributor ledger.Identity) Account {
	return l.accounts[contributor]
}

// TotalDistributed returns the protocol-wide claimed total.
func (l *Ledger) TotalDistributed() ledger.Amount {
	return l.distributed
}

// Contributors returns all identities with a reward account, sorted.
func (l *Ledger) Contributors() []ledger.Identity {
	out := make([]ledger.Identity, 0, len(l.accounts))
	for identity := range l.accounts {
		out = append(out, identity)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// stage appends the contributor's account write to the batch.
func (l *Ledger) stage(b *storage.Batch, contributor ledger.Identity) {
	account := l.accounts[contributor]

	w := codec.NewWriter(16)
	w.U64(account.Pending)
	w.U64(account.Claimed)
	b.Set(accountKey(contributor), w.Bytes())
}

// stageDistributed appends the total-distributed write to the batch.
func (l *Ledger) stageDistributed(b *storage.Batch) {
	w := codec.NewWriter(8)
	w.U64(l.distributed)
	b.Set(distributedKey, w.Bytes())
}

// accountKey builds the storage key for a contributor's reward account.
func accountKey(contributor ledger.Identity) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(contributor))
	key = append(key, keyPrefix...)
	key = append(key, contributor...)
	return key
}
