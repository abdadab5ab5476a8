// Package cidutil provides content-identifier helpers. Submitted content
// identifiers stay opaque strings at the protocol boundary; these helpers
// exist for gateways that hold the artifact bytes locally.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Derive returns a CIDv1 string (raw codec, sha2-256) for artifact bytes.
func Derive(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum cannot fail for SHA2_256 with default length.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// IsCID reports whether s parses as a CID. Legacy identifiers that do not
// parse are still accepted by the ledger; this only classifies them.
func IsCID(s string) bool {
	_, err := cid.Decode(s)
	return err == nil
}

// Normalize returns the canonical string form for CID-shaped identifiers
// and the input unchanged otherwise.
func Normalize(s string) string {
	c, err := cid.Decode(s)
	if err != nil {
		return s
	}
	return c.String()
}
