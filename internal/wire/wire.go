// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the fixed binary encoding used for canonical
// object bytes (the form that is hashed and signed) and for the payloads
// carried over gossip and sync: little-endian fixed-width integers,
// length-prefixed variable data, and a 1-byte tag discriminant for tagged
// unions. The encoding is deliberately stable across releases.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math/big"
)

// ErrTooLarge guards length-prefixed reads against hostile or corrupt
// payloads claiming an unreasonable size.
var ErrTooLarge = errors.New("wire: length prefix exceeds maximum payload size")

// MaxVarDataSize bounds any single length-prefixed field. It is generous
// relative to the sync transmit limit so it only rejects corrupt framing,
// not legitimate large sync responses.
const MaxVarDataSize = 8 * 1_000_000

// Writer accumulates canonical bytes. It never returns an error: all writes
// go to an in-memory buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with a pre-sized buffer.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// PutUint8 appends a single byte.
func (w *Writer) PutUint8(v uint8) { w.buf = append(w.buf, v) }

// PutUint32LE appends a little-endian uint32 (4 bytes).
func (w *Writer) PutUint32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint64LE appends a little-endian uint64 (8 bytes).
func (w *Writer) PutUint64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint128LE appends a little-endian 128-bit unsigned integer (16 bytes),
// used for millisecond timestamps.
func (w *Writer) PutUint128LE(v *big.Int) {
	var b [16]byte
	bs := v.Bytes() // big-endian
	for i := 0; i < len(bs) && i < 16; i++ {
		b[i] = bs[len(bs)-1-i]
	}
	w.buf = append(w.buf, b[:]...)
}

// PutBytes appends raw bytes with no length prefix (used for fixed-width
// fields like hashes, addresses and keys).
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutVarBytes appends a uint32-length-prefixed byte slice.
func (w *Writer) PutVarBytes(b []byte) {
	w.PutUint32LE(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// PutVarString appends a uint32-length-prefixed UTF-8 string.
func (w *Writer) PutVarString(s string) {
	w.PutVarBytes([]byte(s))
}

// Reader consumes canonical/wire bytes sequentially.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Uint32LE reads a little-endian uint32.
func (r *Reader) Uint32LE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint64LE reads a little-endian uint64.
func (r *Reader) Uint64LE() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Uint128LE reads a little-endian 128-bit unsigned integer into a big.Int.
func (r *Reader) Uint128LE() (*big.Int, error) {
	if err := r.need(16); err != nil {
		return nil, err
	}
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = r.buf[r.pos+i]
	}
	r.pos += 16
	return new(big.Int).SetBytes(be), nil
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// VarBytes reads a uint32-length-prefixed byte slice.
func (r *Reader) VarBytes() ([]byte, error) {
	n, err := r.Uint32LE()
	if err != nil {
		return nil, err
	}
	if n > MaxVarDataSize {
		return nil, ErrTooLarge
	}
	return r.Bytes(int(n))
}

// VarString reads a uint32-length-prefixed UTF-8 string.
func (r *Reader) VarString() (string, error) {
	b, err := r.VarBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
