// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"github.com/holiman/uint256"
)

// U256 is an unsigned 256-bit integer used for PoW targets and compact-target
// arithmetic. It wraps github.com/holiman/uint256 rather than math/big so
// consensus-critical arithmetic is fixed-width and allocation-free.
type U256 struct {
	v uint256.Int
}

// ZeroU256 is the additive identity.
var ZeroU256 = U256{}

// U256FromUint64 builds a U256 from a uint64.
func U256FromUint64(x uint64) U256 {
	var u U256
	u.v.SetUint64(x)
	return u
}

// U256FromHashLE interprets the hash's bytes as a little-endian unsigned
// integer. This is the representation used to compare a PoW hash against a
// target: the wire/serialized hash bytes are read back to front.
func U256FromHashLE(h Hash) U256 {
	var u U256
	u.v.SetBytes(reversed(h[:]))
	return u
}

// Bytes32LE renders the integer back to the 32-byte little-endian form.
func (u U256) Bytes32LE() [32]byte {
	be := u.v.Bytes32()
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

// Cmp compares two U256 values: -1, 0, or 1.
func (u U256) Cmp(other U256) int {
	return u.v.Cmp(&other.v)
}

// LessOrEqual reports whether u <= other, the comparison the PoW validity
// check uses.
func (u U256) LessOrEqual(other U256) bool {
	return u.Cmp(other) <= 0
}

// Lsh shifts left by n bits; bits shifted past the 256-bit width are
// discarded.
func (u U256) Lsh(n uint) U256 {
	var out U256
	out.v.Lsh(&u.v, n)
	return out
}

// Rsh shifts right by n bits.
func (u U256) Rsh(n uint) U256 {
	var out U256
	out.v.Rsh(&u.v, n)
	return out
}

// Add returns u + other.
func (u U256) Add(other U256) U256 {
	var out U256
	out.v.Add(&u.v, &other.v)
	return out
}

// Mul returns u * other.
func (u U256) Mul(other U256) U256 {
	var out U256
	out.v.Mul(&u.v, &other.v)
	return out
}

// Div returns u / other (integer division, truncating toward zero). Division
// by zero returns ZeroU256, matching the wrapped library's convention.
func (u U256) Div(other U256) U256 {
	var out U256
	out.v.Div(&u.v, &other.v)
	return out
}

// IsZero reports whether the value is zero.
func (u U256) IsZero() bool {
	return u.v.IsZero()
}

// BitLen returns the number of bits required to represent u, 0 for zero.
func (u U256) BitLen() int {
	return u.v.BitLen()
}

// Uint64 returns the low 64 bits, truncating silently like the wrapped
// library (callers only use this after bounding the value, e.g. the
// mantissa extraction in the compact-target codec).
func (u U256) Uint64() uint64 {
	return u.v.Uint64()
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
