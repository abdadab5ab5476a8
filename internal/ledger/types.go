// Package ledger holds the core types, protocol constants, and error
// taxonomy shared by every ledger component.
package ledger

// Identity is an authenticated caller identity. Authentication happens in
// the external gateway; the core treats identities as opaque strings.
type Identity string

// Amount is a token amount in base units (6 decimals: 1 NWU = 1_000_000).
type Amount = uint64

// ContributionID is a sequential contribution identifier, assigned from 0
// and never reused.
type ContributionID = uint64

// CertificateID is a sequential certificate identifier, assigned from 0
// and never reused, even after burn.
type CertificateID = uint64

// Capability is a named permission an identity may hold.
type Capability string

// Capabilities recognized by the role registry.
const (
	CapAdmin       Capability = "admin"
	CapVerifier    Capability = "verifier"
	CapDistributor Capability = "distributor"
	CapPauser      Capability = "pauser"
	CapMinter      Capability = "minter"
)

// ContributionStatus is the lifecycle state of a contribution.
type ContributionStatus uint8

const (
	// StatusPending means the contribution awaits a passing verification.
	StatusPending ContributionStatus = iota

	// StatusVerified is terminal: a passing verification minted a
	// certificate and allocated a reward.
	StatusVerified
)

// String returns the status name.
func (s ContributionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusVerified:
		return "verified"
	default:
		return "unknown"
	}
}
