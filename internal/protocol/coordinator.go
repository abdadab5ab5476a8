// Package protocol implements the top-level contribution state machine:
// submission, verification, certification, and reward orchestration over
// the component ledgers. Every mutating operation is serialized behind a
// single write lock and commits its writes as one atomic batch; read-only
// queries run under a shared lock and observe a consistent snapshot.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"

	"nwuledger/internal/certs"
	"nwuledger/internal/cidutil"
	"nwuledger/internal/codec"
	"nwuledger/internal/events"
	"nwuledger/internal/ledger"
	"nwuledger/internal/logger"
	"nwuledger/internal/metrics"
	"nwuledger/internal/rewards"
	"nwuledger/internal/roles"
	"nwuledger/internal/storage"
	"nwuledger/internal/token"
	"nwuledger/internal/verify"
	"nwuledger/internal/vesting"
)

// ProtocolIdentity is the coordinator's own identity. It holds the
// distributor and minter capabilities so that a verifier call can trigger
// reward allocation without the verifier holding those capabilities.
const ProtocolIdentity = ledger.Identity("protocol")

// Meta storage keys.
var (
	pausedKey   = []byte("m:paused")
	treasuryKey = []byte("m:treasury")
	nextContKey = []byte("m:nextcontrib")
	verifiedKey = []byte("m:verified")
	initKey     = []byte("m:init")
)

// Config configures a Coordinator.
type Config struct {
	// Admin is the genesis admin identity, granted on first run.
	Admin ledger.Identity

	// Treasury receives submission fees. Changeable later by an admin.
	Treasury ledger.Identity

	// MaxCertificateSupply caps certificate minting.
	// Zero means ledger.MaxCertificateSupply.
	MaxCertificateSupply uint64

	// Clock returns the current unix time. Nil means time.Now.
	Clock func() int64
}

// Totals are the protocol-wide aggregates.
type Totals struct {
	Contributions      uint64
	Verified           uint64
	RewardsDistributed ledger.Amount
}

// Coordinator owns the contribution lifecycle and wires the component
// ledgers together.
type Coordinator struct {
	mu deadlock.RWMutex

	db      *storage.Store
	roles   *roles.Registry
	tokens  *token.Ledger
	certs   *certs.Ledger
	verifs  *verify.Registry
	vesting *vesting.Ledger
	rewards *rewards.Ledger
	emitter *events.Emitter
	metrics *metrics.Metrics
	clock   func() int64

	maxSupply     uint64
	treasury      ledger.Identity
	paused        bool
	nextID        ledger.ContributionID
	totalVerified uint64
	contributions map[ledger.ContributionID]Contribution
	byContributor map[ledger.Identity][]ledger.ContributionID

	// failed is set when a commit failure could not be recovered by
	// reloading from storage; every mutation is refused afterwards.
	failed error
}

// errStateDiverged marks a coordinator whose in-memory state could not be
// re-synchronized with storage after a failed commit.
var errStateDiverged = errors.New("ledger state diverged from storage, restart required")

// Open builds a Coordinator over the given store, bootstrapping genesis
// state on first run and reloading persisted state otherwise.
func Open(db *storage.Store, cfg Config, m *metrics.Metrics) (*Coordinator, error) {
	if cfg.MaxCertificateSupply == 0 {
		cfg.MaxCertificateSupply = ledger.MaxCertificateSupply
	}
	if cfg.Clock == nil {
		cfg.Clock = func() int64 { return time.Now().Unix() }
	}
	if m == nil {
		m = metrics.Nop()
	}

	c := &Coordinator{
		db:        db,
		emitter:   events.NewEmitter(),
		metrics:   m,
		clock:     cfg.Clock,
		maxSupply: cfg.MaxCertificateSupply,
		treasury:  cfg.Treasury,
	}

	if err := c.reload(); err != nil {
		return nil, err
	}

	if err := c.bootstrap(cfg); err != nil {
		return nil, err
	}

	if c.paused {
		c.metrics.Paused.Set(1)
	}

	logger.Info("protocol coordinator open",
		"contributions", c.nextID,
		"verified", c.totalVerified,
		"treasury", c.treasury,
	)

	return c, nil
}

// reload rebuilds the full in-memory state from storage. Called at open
// and again after a failed commit, when memory may hold mutations that
// never reached disk.
func (c *Coordinator) reload() error {
	auth := func(identity ledger.Identity, cap ledger.Capability) bool {
		return c.roles.Has(identity, cap)
	}

	var err error

	c.roles, err = roles.Load(c.db)
	if err != nil {
		return err
	}

	c.tokens, err = token.Load(c.db)
	if err != nil {
		return err
	}

	c.certs, err = certs.Load(c.db, c.maxSupply)
	if err != nil {
		return err
	}

	c.verifs, err = verify.Load(c.db, auth)
	if err != nil {
		return err
	}

	c.vesting, err = vesting.Load(c.db, auth, c.tokens)
	if err != nil {
		return err
	}

	c.rewards, err = rewards.Load(c.db, auth, c.tokens)
	if err != nil {
		return err
	}

	c.contributions = make(map[ledger.ContributionID]Contribution)
	c.byContributor = make(map[ledger.Identity][]ledger.ContributionID)

	return c.loadState()
}

// commit applies the staged writes. If the write fails, the in-memory
// state is rebuilt from storage so memory never keeps mutations that
// disk rejected; if that rebuild also fails, the coordinator refuses
// all further mutations.
func (c *Coordinator) commit(b *storage.Batch) error {
	err := c.db.Commit(b)
	if err == nil {
		return nil
	}

	if rerr := c.reload(); rerr != nil {
		c.failed = fmt.Errorf("%w: reload after failed commit:\n%v", errStateDiverged, rerr)
		logger.Error("ledger state unrecoverable", "commit", err, "reload", rerr)
	} else {
		logger.Error("commit failed, in-memory state reloaded", "error", err)
	}

	return err
}

// loadState reloads contributions, counters, and flags from storage.
func (c *Coordinator) loadState() error {
	err := c.db.IteratePrefix(contributionPrefix, func(key, value []byte) error {
		record, err := decodeContribution(value)
		if err != nil {
			return err
		}

		c.contributions[record.ID] = record
		c.byContributor[record.Contributor] = append(c.byContributor[record.Contributor], record.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("load contributions:\n%w", err)
	}

	c.nextID, err = c.loadCounter(nextContKey)
	if err != nil {
		return err
	}

	c.totalVerified, err = c.loadCounter(verifiedKey)
	if err != nil {
		return err
	}

	raw, err := c.db.Get(pausedKey)
	if err != nil {
		return fmt.Errorf("load pause flag:\n%w", err)
	}
	c.paused = len(raw) == 1 && raw[0] == 1

	raw, err = c.db.Get(treasuryKey)
	if err != nil {
		return fmt.Errorf("load treasury:\n%w", err)
	}
	if raw != nil {
		c.treasury = ledger.Identity(raw)
	}

	return nil
}

// loadCounter reads a u64 meta counter, zero when absent.
func (c *Coordinator) loadCounter(key []byte) (uint64, error) {
	raw, err := c.db.Get(key)
	if err != nil {
		return 0, fmt.Errorf("load counter %s:\n%w", key, err)
	}
	if raw == nil {
		return 0, nil
	}

	r := codec.NewReader(raw)
	v := r.U64()
	if err := r.Err(); err != nil {
		return 0, fmt.Errorf("decode counter %s:\n%w", key, err)
	}

	return v, nil
}

// bootstrap grants genesis capabilities on first run.
func (c *Coordinator) bootstrap(cfg Config) error {
	raw, err := c.db.Get(initKey)
	if err != nil {
		return fmt.Errorf("check genesis:\n%w", err)
	}
	if raw != nil {
		return nil
	}

	if cfg.Admin != "" {
		if err := c.roles.Bootstrap(cfg.Admin, ledger.CapAdmin); err != nil {
			return fmt.Errorf("bootstrap admin:\n%w", err)
		}
	}

	if err := c.roles.Bootstrap(ProtocolIdentity, ledger.CapDistributor); err != nil {
		return fmt.Errorf("bootstrap distributor:\n%w", err)
	}
	if err := c.roles.Bootstrap(ProtocolIdentity, ledger.CapMinter); err != nil {
		return fmt.Errorf("bootstrap minter:\n%w", err)
	}

	if err := c.db.Set(treasuryKey, []byte(cfg.Treasury)); err != nil {
		return fmt.Errorf("persist treasury:\n%w", err)
	}

	if err := c.db.Set(initKey, []byte{1}); err != nil {
		return fmt.Errorf("mark genesis:\n%w", err)
	}

	logger.Info("genesis bootstrap", "admin", cfg.Admin, "treasury", cfg.Treasury)

	return nil
}

// Events returns the lifecycle event emitter.
func (c *Coordinator) Events() *events.Emitter {
	return c.emitter
}

// SubmitContribution creates a Pending contribution record. The submission
// fee is forwarded to the treasury first; if the contributor cannot cover
// it, the submission fails with no record created.
func (c *Coordinator) SubmitContribution(contributor ledger.Identity, contentID, description, category string) (Contribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return Contribution{}, c.failed
	}

	if c.paused {
		return Contribution{}, fmt.Errorf("submit contribution:\n%w", ledger.ErrPaused)
	}

	if contentID == "" || description == "" {
		return Contribution{}, fmt.Errorf("submit contribution: empty content id or description:\n%w", ledger.ErrInvalidInput)
	}

	b := storage.NewBatch()

	// Fee forwarding failure is fatal to the whole submission.
	if err := c.tokens.Transfer(b, contributor, c.treasury, ledger.SubmissionFee); err != nil {
		return Contribution{}, fmt.Errorf("forward submission fee:\n%w", err)
	}

	record := Contribution{
		ID:          c.nextID,
		Contributor: contributor,
		ContentID:   contentID,
		Description: description,
		Category:    category,
		CreatedAt:   c.clock(),
		Status:      ledger.StatusPending,
	}

	c.contributions[record.ID] = record
	c.byContributor[contributor] = append(c.byContributor[contributor], record.ID)
	c.nextID++

	b.Set(contributionKey(record.ID), encodeContribution(record))
	c.stageCounter(b, nextContKey, uint64(c.nextID))

	if err := c.commit(b); err != nil {
		return Contribution{}, fmt.Errorf("commit submission:\n%w", err)
	}

	c.metrics.Contributions.Inc()

	c.emitter.Emit(events.ContributionSubmitted, map[string]any{
		"id":          record.ID,
		"contributor": string(contributor),
		"contentId":   contentID,
		"category":    category,
	})

	logger.Info("contribution submitted", "id", record.ID, "contributor", contributor)

	return record, nil
}

// VerifyContribution records a verifier's quality score for a Pending
// contribution. A passing score performs three effects as one unit: mint
// a certificate to the contributor, allocate the quality-scaled reward,
// and flip the contribution to Verified. A failing score only records the
// verification; the contribution stays Pending and cannot be verified
// again (the registry holds one verification per contribution).
func (c *Coordinator) VerifyContribution(caller ledger.Identity, id ledger.ContributionID, score int) (verify.Verification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return verify.Verification{}, c.failed
	}

	if c.paused {
		return verify.Verification{}, fmt.Errorf("verify contribution:\n%w", ledger.ErrPaused)
	}

	record, ok := c.contributions[id]
	if !ok {
		return verify.Verification{}, fmt.Errorf("verify contribution %d:\n%w", id, ledger.ErrNotFound)
	}

	if record.Status != ledger.StatusPending {
		return verify.Verification{}, fmt.Errorf("verify contribution %d:\n%w", id, ledger.ErrAlreadyVerified)
	}

	// Certificate supply is checked up front so the verification record
	// is never written when the passing path cannot complete.
	passing := score >= ledger.VerificationThreshold && score <= ledger.MaxScore
	if passing && c.certs.Remaining() == 0 {
		return verify.Verification{}, fmt.Errorf("verify contribution %d:\n%w", id, ledger.ErrSupplyExhausted)
	}

	now := c.clock()
	b := storage.NewBatch()

	v, err := c.verifs.Record(b, caller, id, record.ContentID, score, record.Contributor, now)
	if err != nil {
		return verify.Verification{}, err
	}

	var certID ledger.CertificateID
	var reward ledger.Amount

	if v.Passed {
		certID, err = c.certs.Mint(b, record.Contributor, metadataURI(record.ContentID), now)
		if err != nil {
			return verify.Verification{}, fmt.Errorf("mint certificate:\n%w", err)
		}

		reward, err = c.rewards.Allocate(b, ProtocolIdentity, record.Contributor, score)
		if err != nil {
			return verify.Verification{}, fmt.Errorf("allocate reward:\n%w", err)
		}

		record.Status = ledger.StatusVerified
		record.CertificateID = certID
		c.contributions[id] = record
		c.totalVerified++

		b.Set(contributionKey(id), encodeContribution(record))
		c.stageCounter(b, verifiedKey, c.totalVerified)
	}

	if err := c.commit(b); err != nil {
		return verify.Verification{}, fmt.Errorf("commit verification:\n%w", err)
	}

	c.emitter.Emit(events.VerificationRecorded, map[string]any{
		"contributionId": id,
		"verifier":       string(caller),
		"score":          score,
		"passed":         v.Passed,
	})

	if v.Passed {
		c.metrics.Verified.Inc()
		c.metrics.CertificatesMinted.Inc()

		c.emitter.Emit(events.CertificateMinted, map[string]any{
			"certificateId": certID,
			"owner":         string(record.Contributor),
		})
		c.emitter.Emit(events.RewardAllocated, map[string]any{
			"contributor": string(record.Contributor),
			"amount":      reward,
			"score":       score,
		})
		c.emitter.Emit(events.ContributionVerified, map[string]any{
			"id":            id,
			"certificateId": certID,
		})
	}

	logger.Info("contribution verified",
		"id", id,
		"score", score,
		"passed", v.Passed,
	)

	return v, nil
}

// metadataURI derives the certificate metadata location from a content
// identifier: an ipfs URI for CID-shaped identifiers, an opaque urn
// otherwise.
func metadataURI(contentID string) string {
	if cidutil.IsCID(contentID) {
		return "ipfs://" + cidutil.Normalize(contentID)
	}
	return "urn:nwu:content:" + contentID
}

// ClaimReward claims the caller's full pending reward balance.
func (c *Coordinator) ClaimReward(caller ledger.Identity) (ledger.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return 0, c.failed
	}

	if c.paused {
		return 0, fmt.Errorf("claim reward:\n%w", ledger.ErrPaused)
	}

	b := storage.NewBatch()

	amount, err := c.rewards.Claim(b, caller)
	if err != nil {
		return 0, err
	}

	if err := c.commit(b); err != nil {
		return 0, fmt.Errorf("commit claim:\n%w", err)
	}

	c.metrics.RewardsDistributed.Add(float64(amount))

	c.emitter.Emit(events.RewardClaimed, map[string]any{
		"contributor": string(caller),
		"amount":      amount,
	})

	logger.Info("reward claimed", "contributor", caller, "amount", amount)

	return amount, nil
}

// CreateVestingSchedule escrows a linear-release grant for a beneficiary.
func (c *Coordinator) CreateVestingSchedule(caller, beneficiary ledger.Identity, amount ledger.Amount, duration int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	if c.paused {
		return fmt.Errorf("create vesting schedule:\n%w", ledger.ErrPaused)
	}

	b := storage.NewBatch()

	if err := c.vesting.CreateSchedule(b, caller, beneficiary, amount, duration, c.clock()); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit vesting schedule:\n%w", err)
	}

	c.emitter.Emit(events.VestingScheduleCreated, map[string]any{
		"beneficiary": string(beneficiary),
		"amount":      amount,
		"duration":    duration,
	})

	return nil
}

// ReleaseVested releases the caller's currently vested tokens.
func (c *Coordinator) ReleaseVested(caller ledger.Identity) (ledger.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return 0, c.failed
	}

	if c.paused {
		return 0, fmt.Errorf("release vested:\n%w", ledger.ErrPaused)
	}

	b := storage.NewBatch()

	amount, err := c.vesting.Release(b, caller, c.clock())
	if err != nil {
		return 0, err
	}

	if err := c.commit(b); err != nil {
		return 0, fmt.Errorf("commit release:\n%w", err)
	}

	c.emitter.Emit(events.TokensReleased, map[string]any{
		"beneficiary": string(caller),
		"amount":      amount,
	})

	return amount, nil
}

// RevokeVestingSchedule terminates a beneficiary's schedule.
func (c *Coordinator) RevokeVestingSchedule(caller, beneficiary ledger.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	b := storage.NewBatch()

	if err := c.vesting.Revoke(b, caller, beneficiary, c.clock()); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit revoke:\n%w", err)
	}

	c.emitter.Emit(events.VestingRevoked, map[string]any{
		"beneficiary": string(beneficiary),
	})

	return nil
}

// GrantRole grants a capability. Emits only on actual membership change.
func (c *Coordinator) GrantRole(caller, identity ledger.Identity, cap ledger.Capability) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	changed, err := c.roles.Grant(caller, identity, cap)
	if err != nil {
		return err
	}

	if changed {
		c.emitter.Emit(events.RoleGranted, map[string]any{
			"identity":   string(identity),
			"capability": string(cap),
		})
	}

	return nil
}

// RevokeRole revokes a capability. Emits only on actual membership change.
func (c *Coordinator) RevokeRole(caller, identity ledger.Identity, cap ledger.Capability) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	changed, err := c.roles.Revoke(caller, identity, cap)
	if err != nil {
		return err
	}

	if changed {
		c.emitter.Emit(events.RoleRevoked, map[string]any{
			"identity":   string(identity),
			"capability": string(cap),
		})
	}

	return nil
}

// HasRole reports whether identity holds the capability.
func (c *Coordinator) HasRole(identity ledger.Identity, cap ledger.Capability) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.roles.Has(identity, cap)
}

// MintTokens issues tokens to an identity. Caller must hold minter.
func (c *Coordinator) MintTokens(caller, to ledger.Identity, amount ledger.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	if !c.roles.Has(caller, ledger.CapMinter) {
		return fmt.Errorf("mint tokens:\n%w", ledger.ErrUnauthorized)
	}

	b := storage.NewBatch()

	if err := c.tokens.Mint(b, to, amount); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit mint:\n%w", err)
	}

	return nil
}

// TransferCertificate moves a certificate to a new owner.
func (c *Coordinator) TransferCertificate(caller ledger.Identity, id ledger.CertificateID, to ledger.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	b := storage.NewBatch()

	if err := c.certs.Transfer(b, caller, id, to); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit transfer:\n%w", err)
	}

	c.emitter.Emit(events.CertificateTransferred, map[string]any{
		"certificateId": id,
		"to":            string(to),
	})

	return nil
}

// BurnCertificate destroys a certificate owned by the caller.
func (c *Coordinator) BurnCertificate(caller ledger.Identity, id ledger.CertificateID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	b := storage.NewBatch()

	if err := c.certs.Burn(b, caller, id); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit burn:\n%w", err)
	}

	c.emitter.Emit(events.CertificateBurned, map[string]any{
		"certificateId": id,
	})

	return nil
}

// SetCertificateRoyalty records an attribution royalty. Creator only.
func (c *Coordinator) SetCertificateRoyalty(caller ledger.Identity, id ledger.CertificateID, recipient ledger.Identity, bps uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	b := storage.NewBatch()

	if err := c.certs.SetRoyalty(b, caller, id, recipient, bps); err != nil {
		return err
	}

	if err := c.commit(b); err != nil {
		return fmt.Errorf("commit royalty:\n%w", err)
	}

	return nil
}

// BatchMintCertificates mints one certificate per owner/uri pair.
// Caller must hold minter. Fails atomically on length mismatch.
func (c *Coordinator) BatchMintCertificates(caller ledger.Identity, owners []ledger.Identity, uris []string) ([]ledger.CertificateID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return nil, c.failed
	}

	if !c.roles.Has(caller, ledger.CapMinter) {
		return nil, fmt.Errorf("batch mint certificates:\n%w", ledger.ErrUnauthorized)
	}

	b := storage.NewBatch()

	ids, err := c.certs.BatchMint(b, owners, uris, c.clock())
	if err != nil {
		return nil, err
	}

	if err := c.commit(b); err != nil {
		return nil, fmt.Errorf("commit batch mint:\n%w", err)
	}

	for i, id := range ids {
		c.metrics.CertificatesMinted.Inc()
		c.emitter.Emit(events.CertificateMinted, map[string]any{
			"certificateId": id,
			"owner":         string(owners[i]),
		})
	}

	return ids, nil
}

// SetTreasury changes the fee destination. Admin only.
func (c *Coordinator) SetTreasury(caller, treasury ledger.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	if !c.roles.Has(caller, ledger.CapAdmin) {
		return fmt.Errorf("set treasury:\n%w", ledger.ErrUnauthorized)
	}

	if treasury == "" {
		return fmt.Errorf("set treasury:\n%w", ledger.ErrInvalidInput)
	}

	if err := c.db.Set(treasuryKey, []byte(treasury)); err != nil {
		return fmt.Errorf("persist treasury:\n%w", err)
	}

	c.treasury = treasury

	c.emitter.Emit(events.TreasuryUpdated, map[string]any{
		"treasury": string(treasury),
	})

	return nil
}

// Pause sets the protocol-wide pause flag. Pauser or admin only.
// While paused, submissions and value-moving operations fail; queries
// remain available.
func (c *Coordinator) Pause(caller ledger.Identity) error {
	return c.setPaused(caller, true)
}

// Unpause clears the pause flag. Pauser or admin only.
func (c *Coordinator) Unpause(caller ledger.Identity) error {
	return c.setPaused(caller, false)
}

// setPaused flips and persists the pause flag.
func (c *Coordinator) setPaused(caller ledger.Identity, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failed != nil {
		return c.failed
	}

	if !c.roles.Has(caller, ledger.CapPauser) && !c.roles.Has(caller, ledger.CapAdmin) {
		return fmt.Errorf("set pause:\n%w", ledger.ErrUnauthorized)
	}

	if c.paused == paused {
		return nil
	}

	flag := []byte{0}
	gauge := 0.0
	event := events.ProtocolUnpaused
	if paused {
		flag = []byte{1}
		gauge = 1.0
		event = events.ProtocolPaused
	}

	if err := c.db.Set(pausedKey, flag); err != nil {
		return fmt.Errorf("persist pause flag:\n%w", err)
	}

	c.paused = paused
	c.metrics.Paused.Set(gauge)

	c.emitter.Emit(event, map[string]any{"by": string(caller)})

	logger.Warn("pause flag changed", "paused", paused, "by", caller)

	return nil
}

// stageCounter appends a u64 meta counter write to the batch.
func (c *Coordinator) stageCounter(b *storage.Batch, key []byte, v uint64) {
	w := codec.NewWriter(8)
	w.U64(v)
	b.Set(key, w.Bytes())
}
