package protocol

import (
	"encoding/binary"
	"fmt"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
)

// contributionPrefix is the storage key prefix for contribution records.
var contributionPrefix = []byte("c:")

// Contribution is a submitted artifact record. Created on submission and
// mutated exactly once (Pending -> Verified); never deleted.
type Contribution struct {
	ID          ledger.ContributionID
	Contributor ledger.Identity
	ContentID   string
	Description string
	Category    string
	CreatedAt   int64
	Status      ledger.ContributionStatus

	// CertificateID is set when Status is Verified; zero otherwise.
	CertificateID ledger.CertificateID
}

// contributionKey builds the storage key (big-endian id for ordered scans).
func contributionKey(id ledger.ContributionID) []byte {
	key := make([]byte, len(contributionPrefix)+8)
	copy(key, contributionPrefix)
	binary.BigEndian.PutUint64(key[len(contributionPrefix):], id)
	return key
}

// encodeContribution encodes a contribution record.
func encodeContribution(c Contribution) []byte {
	w := codec.NewWriter(96 + len(c.ContentID) + len(c.Description) + len(c.Category))
	w.U64(c.ID)
	w.String(string(c.Contributor))
	w.String(c.ContentID)
	w.String(c.Description)
	w.String(c.Category)
	w.I64(c.CreatedAt)
	w.Bool(c.Status == ledger.StatusVerified)
	w.U64(c.CertificateID)
	return w.Bytes()
}

// decodeContribution decodes a contribution record.
func decodeContribution(data []byte) (Contribution, error) {
	r := codec.NewReader(data)

	c := Contribution{
		ID:          r.U64(),
		Contributor: ledger.Identity(r.String()),
		ContentID:   r.String(),
		Description: r.String(),
		Category:    r.String(),
		CreatedAt:   r.I64(),
	}

	if r.Bool() {
		c.Status = ledger.StatusVerified
	}
	c.CertificateID = r.U64()

	if err := r.Err(); err != nil {
		return Contribution{}, fmt.Errorf("decode contribution:\n%w", err)
	}

	return c, nil
}
