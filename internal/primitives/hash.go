// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primitives defines the fixed-width value types shared across the
// node: hashes, addresses, keys, signatures and the 256-bit integer used for
// proof-of-work targets.
package primitives

import (
	"encoding/hex"
	"errors"
)

// HashSize is the number of bytes in a Blake2b-256 digest.
const HashSize = 32

// Hash is a fixed-size 32-byte value produced by Blake2b-256. It is used for
// block and transaction identifiers, merkle nodes, and PoW outputs.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, used as the parent of the genesis block and
// as the merkle-tree padding value.
var ZeroHash Hash

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// NewHashFromBytes builds a Hash from a byte slice, which must be exactly
// HashSize bytes long.
func NewHashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("primitives: invalid hash length")
	}
	copy(h[:], b)
	return h, nil
}

// NewHashFromString decodes a hex-encoded hash.
func NewHashFromString(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return NewHashFromBytes(b)
}
