package storage

// Batch accumulates writes that must land atomically.
// Ledger components append their writes to a shared batch and the
// coordinator commits it once the whole operation has succeeded.
type Batch struct {
	pairs []KeyValue
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set stages a key-value write.
func (b *Batch) Set(key, value []byte) {
	b.pairs = append(b.pairs, KeyValue{Key: key, Value: value})
}

// Delete stages a key deletion.
func (b *Batch) Delete(key []byte) {
	b.pairs = append(b.pairs, KeyValue{Key: key, Value: nil})
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	return len(b.pairs)
}

// Commit atomically applies all staged writes.
func (s *Store) Commit(b *Batch) error {
	if len(b.pairs) == 0 {
		return nil
	}
	return s.Apply(b.pairs)
}
