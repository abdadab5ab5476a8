// Package certs implements the certificate ledger: unique, ownable tokens
// bound to verified contributions. Identifiers are assigned sequentially
// and never reused, even after a burn.
package certs

import (
	"encoding/binary"
	"fmt"
	"sort"

	"nwuledger/internal/codec"
	"nwuledger/internal/ledger"
	"nwuledger/internal/storage"
)

// Storage key prefixes.
var (
	certPrefix    = []byte("n:")        // certificate records by id
	royaltyPrefix = []byte("y:")        // royalty side-records by id
	nextIDKey     = []byte("m:nextcert")
)

// Certificate is a minted certificate record.
// Creator is fixed at mint time and survives ownership transfers.
type Certificate struct {
	ID          ledger.CertificateID
	Owner       ledger.Identity
	Creator     ledger.Identity
	MintedAt    int64
	MetadataURI string
}

// Royalty is an attribution side-record tied to a certificate.
// Cleared when the certificate is burned.
type Royalty struct {
	Recipient   ledger.Identity
	BasisPoints uint32
}

// maxRoyaltyBPS caps royalties at 100%.
const maxRoyaltyBPS = 10_000

// Ledger owns all certificate records.
// Not safe for concurrent use; the coordinator serializes access.
type Ledger struct {
	db        *storage.Store
	certs     map[ledger.CertificateID]Certificate
	royalties map[ledger.CertificateID]Royalty
	owned     map[ledger.Identity]map[ledger.CertificateID]struct{}
	nextID    ledger.CertificateID
	maxSupply uint64
}

// Load builds a Ledger from persisted state with the given supply cap.
func Load(db *storage.Store, maxSupply uint64) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		certs:     make(map[ledger.CertificateID]Certificate),
		royalties: make(map[ledger.CertificateID]Royalty),
		owned:     make(map[ledger.Identity]map[ledger.CertificateID]struct{}),
		maxSupply: maxSupply,
	}

	err := db.IteratePrefix(certPrefix, func(key, value []byte) error {
		cert, err := decodeCertificate(value)
		if err != nil {
			return err
		}

		l.certs[cert.ID] = cert
		l.index(cert.Owner, cert.ID)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load certificates:\n%w", err)
	}

	err = db.IteratePrefix(royaltyPrefix, func(key, value []byte) error {
		id := binary.BigEndian.Uint64(key[len(royaltyPrefix):])

		r := codec.NewReader(value)
		royalty := Royalty{
			Recipient:   ledger.Identity(r.String()),
			BasisPoints: r.U32(),
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("decode royalty %d:\n%w", id, err)
		}

		l.royalties[id] = royalty
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load royalties:\n%w", err)
	}

	raw, err := db.Get(nextIDKey)
	if err != nil {
		return nil, fmt.Errorf("load next certificate id:\n%w", err)
	}
	if raw != nil {
		r := codec.NewReader(raw)
		l.nextID = r.U64()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("decode next certificate id:\n%w", err)
		}
	}

	return l, nil
}

// Mint issues a new certificate to owner and returns its identifier.
// Fails with ErrSupplyExhausted once the supply cap is reached.
func (l *Ledger) Mint(b *storage.Batch, owner ledger.Identity, metadataURI string, now int64) (ledger.CertificateID, error) {
	if uint64(l.nextID) >= l.maxSupply {
		return 0, fmt.Errorf("mint certificate:\n%w", ledger.ErrSupplyExhausted)
	}

	cert := Certificate{
		ID:          l.nextID,
		Owner:       owner,
		Creator:     owner,
		MintedAt:    now,
		MetadataURI: metadataURI,
	}

	l.certs[cert.ID] = cert
	l.index(owner, cert.ID)
	l.nextID++

	b.Set(certKey(cert.ID), encodeCertificate(cert))
	l.stageNextID(b)

	return cert.ID, nil
}

// BatchMint issues one certificate per owner/uri pair.
// Fails with ErrLengthMismatch before any mint if the slices differ;
// fails with ErrSupplyExhausted before any mint if the cap would be crossed.
func (l *Ledger) BatchMint(b *storage.Batch, owners []ledger.Identity, uris []string, now int64) ([]ledger.CertificateID, error) {
	if len(owners) != len(uris) {
		return nil, fmt.Errorf("batch mint %d owners, %d uris:\n%w", len(owners), len(uris), ledger.ErrLengthMismatch)
	}

	if uint64(l.nextID)+uint64(len(owners)) > l.maxSupply {
		return nil, fmt.Errorf("batch mint %d certificates:\n%w", len(owners), ledger.ErrSupplyExhausted)
	}

	ids := make([]ledger.CertificateID, 0, len(owners))
	for i := range owners {
		id, err := l.Mint(b, owners[i], uris[i], now)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Transfer moves a certificate to a new owner. Only the current owner may
// call. Creator provenance is unchanged.
func (l *Ledger) Transfer(b *storage.Batch, caller ledger.Identity, id ledger.CertificateID, to ledger.Identity) error {
	cert, ok := l.certs[id]
	if !ok {
		return fmt.Errorf("transfer certificate %d:\n%w", id, ledger.ErrNotFound)
	}

	if cert.Owner != caller {
		return fmt.Errorf("transfer certificate %d:\n%w", id, ledger.ErrUnauthorized)
	}

	l.unindex(cert.Owner, id)
	cert.Owner = to
	l.certs[id] = cert
	l.index(to, id)

	b.Set(certKey(id), encodeCertificate(cert))

	return nil
}

// Burn destroys a certificate. Only the current owner may call.
// Any royalty side-record is cleared; the identifier is never reused.
func (l *Ledger) Burn(b *storage.Batch, caller ledger.Identity, id ledger.CertificateID) error {
	cert, ok := l.certs[id]
	if !ok {
		return fmt.Errorf("burn certificate %d:\n%w", id, ledger.ErrNotFound)
	}

	if cert.Owner != caller {
		return fmt.Errorf("burn certificate %d:\n%w", id, ledger.ErrUnauthorized)
	}

	delete(l.certs, id)
	delete(l.royalties, id)
	l.unindex(cert.Owner, id)

	b.Delete(certKey(id))
	b.Delete(royaltyKey(id))

	return nil
}

// SetRoyalty records an attribution royalty for a certificate.
// Only the creator may call; basis points are capped at 10000.
func (l *Ledger) SetRoyalty(b *storage.Batch, caller ledger.Identity, id ledger.CertificateID, recipient ledger.Identity, bps uint32) error {
	cert, ok := l.certs[id]
	if !ok {
		return fmt.Errorf("set royalty on %d:\n%w", id, ledger.ErrNotFound)
	}

	if cert.Creator != caller {
		return fmt.Errorf("set royalty on %d:\n%w", id, ledger.ErrUnauthorized)
	}

	if bps > maxRoyaltyBPS {
		return fmt.Errorf("set royalty on %d: %d bps:\n%w", id, bps, ledger.ErrInvalidInput)
	}

	royalty := Royalty{Recipient: recipient, BasisPoints: bps}
	l.royalties[id] = royalty

	w := codec.NewWriter(32)
	w.String(string(recipient))
	w.U32(bps)
	b.Set(royaltyKey(id), w.Bytes())

	return nil
}

// Get returns a certificate by id.
func (l *Ledger) Get(id ledger.CertificateID) (Certificate, bool) {
	cert, ok := l.certs[id]
	return cert, ok
}

// RoyaltyFor returns the royalty side-record for a certificate.
func (l *Ledger) RoyaltyFor(id ledger.CertificateID) (Royalty, bool) {
	r, ok := l.royalties[id]
	return r, ok
}

// OwnedBy returns the certificate ids held by identity, ascending.
func (l *Ledger) OwnedBy(identity ledger.Identity) []ledger.CertificateID {
	set, ok := l.owned[identity]
	if !ok {
		return nil
	}

	out := make([]ledger.CertificateID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// TotalMinted returns the number of certificates ever minted,
// including burned ones.
func (l *Ledger) TotalMinted() uint64 {
	return uint64(l.nextID)
}

// Remaining returns how many certificates can still be minted.
func (l *Ledger) Remaining() uint64 {
	return l.maxSupply - uint64(l.nextID)
}

// index records id under the owner's certificate set.
func (l *Ledger) index(owner ledger.Identity, id ledger.CertificateID) {
	set, ok := l.owned[owner]
	if !ok {
		set = make(map[ledger.CertificateID]struct{})
		l.owned[owner] = set
	}
	set[id] = struct{}{}
}

// unindex removes id from the owner's certificate set.
func (l *Ledger) unindex(owner ledger.Identity, id ledger.CertificateID) {
	set, ok := l.owned[owner]
	if !ok {
		return
	}

	delete(set, id)
	if len(set) == 0 {
		delete(l.owned, owner)
	}
}

// stageNextID appends the next-id write to the batch.
func (l *Ledger) stageNextID(b *storage.Batch) {
	w := codec.NewWriter(8)
	w.U64(l.nextID)
	b.Set(nextIDKey, w.Bytes())
}

// certKey builds the storage key for a certificate (big-endian id so
// iteration order matches id order).
func certKey(id ledger.CertificateID) []byte {
	key := make([]byte, len(certPrefix)+8)
	copy(key, certPrefix)
	binary.BigEndian.PutUint64(key[len(certPrefix):], id)
	return key
}

// royaltyKey builds the storage key for a royalty side-record.
func royaltyKey(id ledger.CertificateID) []byte {
	key := make([]byte, len(royaltyPrefix)+8)
	copy(key, royaltyPrefix)
	binary.BigEndian.PutUint64(key[len(royaltyPrefix):], id)
	return key
}

// encodeCertificate encodes a certificate record.
func encodeCertificate(c Certificate) []byte {
	w := codec.NewWriter(64 + len(c.MetadataURI))
	w.U64(c.ID)
	w.String(string(c.Owner))
	w.String(string(c.Creator))
	w.I64(c.MintedAt)
	w.String(c.MetadataURI)
	return w.Bytes()
}

// decodeCertificate decodes a certificate record.
func decodeCertificate(data []byte) (Certificate, error) {
	r := codec.NewReader(data)
	c := Certificate{
		ID:          r.U64(),
		Owner:       ledger.Identity(r.String()),
		Creator:     ledger.Identity(r.String()),
		MintedAt:    r.I64(),
		MetadataURI: r.String(),
	}

	if err := r.Err(); err != nil {
		return Certificate{}, fmt.Errorf("decode certificate:\n%w", err)
	}

	return c, nil
}
