package ledger

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every business-rule failure surfaced by the ledger wraps
// one of these sentinels; callers branch with errors.Is rather than matching
// strings. All are local, non-retryable failures; nothing is recovered or
// deferred internally.
var (
	// ErrUnauthorized means a capability check failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means a malformed or out-of-range argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means the operation collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientFunds means a balance cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNothingToClaim means the pending reward balance is zero.
	ErrNothingToClaim = errors.New("nothing to claim")

	// ErrNothingToRelease means no vested tokens are releasable.
	ErrNothingToRelease = errors.New("nothing to release")

	// ErrPaused means the protocol pause flag is set.
	ErrPaused = errors.New("protocol paused")

	// ErrSupplyExhausted means the certificate supply cap was reached.
	ErrSupplyExhausted = errors.New("supply exhausted")
)

// Specific failures, each rooted in a taxonomy sentinel so that both the
// precise condition and its category can be tested with errors.Is.
var (
	// ErrScoreOutOfRange means a quality score outside 0..100.
	ErrScoreOutOfRange = fmt.Errorf("%w: score out of range", ErrInvalidInput)

	// ErrScoreTooLow means a reward was requested for a score below the minimum.
	ErrScoreTooLow = fmt.Errorf("%w: score below reward minimum", ErrInvalidInput)

	// ErrScoreInvalid means a reward was requested for a score above 100.
	ErrScoreInvalid = fmt.Errorf("%w: score above maximum", ErrInvalidInput)

	// ErrLengthMismatch means batch argument slices differ in length.
	ErrLengthMismatch = fmt.Errorf("%w: length mismatch", ErrInvalidInput)

	// ErrDuplicateVerification means a contribution already has a verification.
	ErrDuplicateVerification = fmt.Errorf("%w: duplicate verification", ErrConflict)

	// ErrAlreadyVerified means a contribution already left the Pending state.
	ErrAlreadyVerified = fmt.Errorf("%w: already verified", ErrConflict)

	// ErrScheduleExists means the beneficiary already has a vesting schedule.
	ErrScheduleExists = fmt.Errorf("%w: vesting schedule exists", ErrConflict)
)
