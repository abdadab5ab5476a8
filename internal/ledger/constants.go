package ledger

// Protocol constants. The reward and vesting formulas use truncating integer
// division; partial amounts round down so the ledger never over-pays.
const (
	// VerificationThreshold is the minimum score for a verification to pass.
	VerificationThreshold = 70

	// MinRewardScore is the lowest score that earns a reward.
	// Equal to VerificationThreshold: a passing score always pays.
	MinRewardScore = 70

	// MaxScore is the top of the quality score range.
	MaxScore = 100

	// BaseReward is the reward for a minimum passing score, in base units
	// (10 NWU). Higher scores scale linearly: BaseReward * score / MinRewardScore.
	BaseReward Amount = 10_000_000

	// SubmissionFee is the flat fee charged on every contribution
	// submission and forwarded to the treasury (1 NWU).
	SubmissionFee Amount = 1_000_000

	// MaxCertificateSupply caps the number of certificates ever minted.
	MaxCertificateSupply = 1_000_000
)
