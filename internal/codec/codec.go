// Package codec implements the little-endian binary encoding used for every
// persisted ledger record. Strings are u32 length-prefixed, integers are
// fixed-width little-endian, booleans are a single byte. The encoding is
// deterministic: the same record always produces the same bytes, which lets
// the protocol state hash be computed over raw stored values.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates an encoded record.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded record.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// U64 appends a uint64 (little-endian).
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I64 appends an int64 (little-endian, two's complement).
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// U32 appends a uint32 (little-endian).
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Bool appends a boolean as a single byte (0 or 1).
func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// String appends a u32 length prefix followed by the string bytes.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader decodes a record produced by Writer.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader returns a Reader over the given bytes.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decode error encountered, or nil.
// Once an error occurs, all subsequent reads return zero values.
func (r *Reader) Err() error {
	return r.err
}

// need checks that n bytes remain, recording an error otherwise.
func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("truncated record: need %d bytes at offset %d, have %d", n, r.pos, len(r.data))
		return false
	}
	return true
}

// U64 reads a uint64.
func (r *Reader) U64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// I64 reads an int64.
func (r *Reader) I64() int64 {
	return int64(r.U64())
}

// U32 reads a uint32.
func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// Bool reads a boolean.
func (r *Reader) Bool() bool {
	if !r.need(1) {
		return false
	}
	v := r.data[r.pos]
	r.pos++
	return v != 0
}

// String reads a u32 length-prefixed string.
func (r *Reader) String() string {
	n := int(r.U32())
	if !r.need(n) {
		return ""
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s
}
