// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import "testing"

// TestCompactRoundTrip checks decode(encode(x)) == x: EncodeCompact always
// emits the minimal-size encoding for a target, so this direction round
// trips exactly, unlike encode(decode(bits)), which can renormalize a
// non-minimal bits value (e.g. one with a padding zero byte in the
// mantissa) to a different, but numerically equal, bits encoding.
func TestCompactRoundTrip(t *testing.T) {
	cases := []U256{
		U256FromUint64(0),
		U256FromUint64(1),
		U256FromUint64(0xffff),
		U256FromUint64(0x0404cb).Lsh(192),
		U256FromUint64(1).Lsh(250),
	}
	for _, target := range cases {
		bits := EncodeCompact(target)
		got, err := DecodeCompact(bits)
		if err != nil {
			t.Fatalf("DecodeCompact(EncodeCompact(%s)): %v", target.Bytes32LE(), err)
		}
		if got.Cmp(target) != 0 {
			t.Errorf("round trip mismatch: encoded %08x, decoded %v, want %v", bits, got.Bytes32LE(), target.Bytes32LE())
		}
	}
}

func TestDecodeCompactRejectsNegativeMantissa(t *testing.T) {
	if _, err := DecodeCompact(0x01800001); err == nil {
		t.Fatal("expected an error for a sign-set, non-zero mantissa")
	}
}

func TestDecodeCompactRejectsOverflow(t *testing.T) {
	if _, err := DecodeCompact(0xff123456); err == nil {
		t.Fatal("expected an error for a mantissa that overflows at size 255")
	}
}

func TestDecodeCompactZeroMantissaIsZero(t *testing.T) {
	target, err := DecodeCompact(0x04000000)
	if err != nil {
		t.Fatalf("DecodeCompact: %v", err)
	}
	if !target.IsZero() {
		t.Fatal("a zero mantissa should decode to zero regardless of size")
	}
}
