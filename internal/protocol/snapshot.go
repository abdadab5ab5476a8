package protocol

import (
	"bytes"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"nwuledger/internal/metrics"
	"nwuledger/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotVersion is the current snapshot format version.
const snapshotVersion = 1

// snapshotEntry is one key/value pair of persisted state.
type snapshotEntry struct {
	Key   []byte `json:"k"`
	Value []byte `json:"v"`
}

// snapshotManifest is the serialized snapshot envelope. The checksum
// covers version and the sorted entries.
type snapshotManifest struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Entries  []snapshotEntry `json:"entries"`
}

// ExportSnapshot serializes the full persisted state into a compressed,
// checksummed blob suitable for backup or bootstrapping a fresh node.
func (c *Coordinator) ExportSnapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entries []snapshotEntry

	err := c.db.Iterate(func(key, value []byte) error {
		keyCopy := make([]byte, len(key))
		copy(keyCopy, key)

		valueCopy := make([]byte, len(value))
		copy(valueCopy, value)

		entries = append(entries, snapshotEntry{Key: keyCopy, Value: valueCopy})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect state:\n%w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})

	manifest := snapshotManifest{
		Version:  snapshotVersion,
		Checksum: snapshotChecksum(snapshotVersion, entries),
		Entries:  entries,
	}

	raw, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot:\n%w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(raw, nil), nil
}

// ImportSnapshot replaces the store's contents with a snapshot produced
// by ExportSnapshot and reloads all in-memory state. The checksum is
// verified before anything is written.
func ImportSnapshot(db *storage.Store, data []byte, cfg Config, m *metrics.Metrics) (*Coordinator, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	var manifest snapshotManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decode snapshot:\n%w", err)
	}

	if manifest.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", manifest.Version)
	}

	if got := snapshotChecksum(manifest.Version, manifest.Entries); got != manifest.Checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch: got %s, want %s", got, manifest.Checksum)
	}

	pairs := make([]storage.KeyValue, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		pairs[i] = storage.KeyValue{Key: entry.Key, Value: entry.Value}
	}

	if err := db.Apply(pairs); err != nil {
		return nil, fmt.Errorf("apply snapshot:\n%w", err)
	}

	return Open(db, cfg, m)
}

// snapshotChecksum computes a blake3 checksum over the canonical
// snapshot contents.
func snapshotChecksum(version int, entries []snapshotEntry) string {
	hasher := blake3.New()

	var header [8]byte
	header[0] = byte(version)
	hasher.Write(header[:])

	for _, entry := range entries {
		hasher.Write(entry.Key)
		hasher.Write(entry.Value)
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return fmt.Sprintf("%x", checksum)
}
