package protocol

import (
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"nwuledger/internal/certs"
	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/rewards"
	"nwuledger/internal/verify"
	"nwuledger/internal/vesting"
)

// Contribution returns a contribution by id.
func (c *Coordinator) Contribution(id ledger.ContributionID) (Contribution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.contributions[id]

	return record, ok
}

// ContributionsBy returns the ids submitted by an identity, in
// submission order.
func (c *Coordinator) ContributionsBy(contributor ledger.Identity) []ledger.ContributionID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byContributor[contributor]
	out := make([]ledger.ContributionID, len(ids))
	copy(out, ids)

	return out
}

// Verification returns the verification recorded for a contribution.
func (c *Coordinator) Verification(id ledger.ContributionID) (verify.Verification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.verifs.Get(id)
}

// ContributorStats returns submission and verification aggregates for
// one contributor: verifications received, how many passed, and the
// truncated mean score.
func (c *Coordinator) ContributorStats(contributor ledger.Identity) (total, passed, averageScore int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.verifs.StatsFor(contributor)
}

// ScoreSummary returns the distribution summary of a contributor's
// verification scores.
func (c *Coordinator) ScoreSummary(contributor ledger.Identity) verify.ScoreSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.verifs.Summarize(contributor)
}

// Certificate returns a certificate by id.
func (c *Coordinator) Certificate(id ledger.CertificateID) (certs.Certificate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.certs.Get(id)
}

// CertificateRoyalty returns the royalty attached to a certificate.
func (c *Coordinator) CertificateRoyalty(id ledger.CertificateID) (certs.Royalty, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.certs.RoyaltyFor(id)
}

// CertificatesOwnedBy returns the certificate ids held by an identity.
func (c *Coordinator) CertificatesOwnedBy(identity ledger.Identity) []ledger.CertificateID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.certs.OwnedBy(identity)
}

// Balance returns an identity's token balance.
func (c *Coordinator) Balance(identity ledger.Identity) ledger.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tokens.Balance(identity)
}

// TotalSupply returns the total token supply.
func (c *Coordinator) TotalSupply() ledger.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tokens.TotalSupply()
}

// RewardAccount returns an identity's pending and claimed reward totals.
func (c *Coordinator) RewardAccount(identity ledger.Identity) rewards.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.rewards.AccountFor(identity)
}

// VestingSchedule returns a beneficiary's schedule.
func (c *Coordinator) VestingSchedule(beneficiary ledger.Identity) (vesting.Schedule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.vesting.Get(beneficiary)
}

// Treasury returns the current fee destination.
func (c *Coordinator) Treasury() ledger.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.treasury
}

// Paused reports the protocol pause flag.
func (c *Coordinator) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.paused
}

// Totals returns the protocol-wide aggregate counters.
func (c *Coordinator) Totals() Totals {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Totals{
		Contributions:      uint64(c.nextID),
		Verified:           c.totalVerified,
		RewardsDistributed: c.rewards.TotalDistributed(),
	}
}

// RecomputeTotals rebuilds the aggregate counters from the individual
// records and reports whether they matched the persisted counters. It is
// a consistency check for operators; the persisted counters stay
// authoritative either way.
func (c *Coordinator) RecomputeTotals() (Totals, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var computed Totals

	computed.Contributions = uint64(len(c.contributions))
	for _, record := range c.contributions {
		if record.Status == ledger.StatusVerified {
			computed.Verified++
		}
	}

	for _, contributor := range c.rewards.Contributors() {
		computed.RewardsDistributed += c.rewards.AccountFor(contributor).Claimed
	}

	stored := Totals{
		Contributions:      uint64(c.nextID),
		Verified:           c.totalVerified,
		RewardsDistributed: c.rewards.TotalDistributed(),
	}

	return computed, computed == stored
}

// StateHash returns a deterministic digest of the full protocol state.
// Two ledgers that processed the same operations produce the same hash.
func (c *Coordinator) StateHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := blake3.New()

	write := func(section string, body []byte) {
		w := codec.NewWriter(len(section) + len(body) + 8)
		w.String(section)
		h.Write(w.Bytes())
		h.Write(body)
	}

	ids := make([]ledger.ContributionID, 0, len(c.contributions))
	for id := range c.contributions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		write("contribution", encodeContribution(c.contributions[id]))
	}

	for _, identity := range c.tokens.Identities() {
		w := codec.NewWriter(64)
		w.String(string(identity))
		w.U64(uint64(c.tokens.Balance(identity)))
		write("balance", w.Bytes())
	}

	for _, contributor := range c.rewards.Contributors() {
		account := c.rewards.AccountFor(contributor)
		w := codec.NewWriter(64)
		w.String(string(contributor))
		w.U64(uint64(account.Pending))
		w.U64(uint64(account.Claimed))
		write("rewards", w.Bytes())
	}

	w := codec.NewWriter(32)
	w.U64(uint64(c.nextID))
	w.U64(c.totalVerified)
	w.U64(uint64(c.certs.TotalMinted()))
	w.U64(uint64(c.tokens.TotalSupply()))
	write("meta", w.Bytes())

	sum := h.Sum(nil)

	return fmt.Sprintf("%x", sum)
}
