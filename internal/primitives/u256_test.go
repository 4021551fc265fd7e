// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import "testing"

func TestU256Arithmetic(t *testing.T) {
	a := U256FromUint64(100)
	b := U256FromUint64(7)

	if got := a.Add(b).Uint64(); got != 107 {
		t.Errorf("Add: got %d, want 107", got)
	}
	if got := a.Mul(b).Uint64(); got != 700 {
		t.Errorf("Mul: got %d, want 700", got)
	}
	if got := a.Div(b).Uint64(); got != 14 {
		t.Errorf("Div: got %d, want 14 (truncating)", got)
	}
	if got := a.Lsh(1).Uint64(); got != 200 {
		t.Errorf("Lsh: got %d, want 200", got)
	}
	if got := a.Rsh(1).Uint64(); got != 50 {
		t.Errorf("Rsh: got %d, want 50", got)
	}
}

func TestU256Cmp(t *testing.T) {
	small := U256FromUint64(1)
	big_ := U256FromUint64(2)

	if small.Cmp(big_) >= 0 {
		t.Error("1 should compare less than 2")
	}
	if !small.LessOrEqual(big_) {
		t.Error("1 should be <= 2")
	}
	if !small.LessOrEqual(small) {
		t.Error("a value should be <= itself")
	}
	if big_.LessOrEqual(small) {
		t.Error("2 should not be <= 1")
	}
}

func TestU256FromHashLEIsLittleEndian(t *testing.T) {
	var h Hash
	h[0] = 0x01 // least-significant byte in the LE interpretation
	u := U256FromHashLE(h)
	if u.Uint64() != 1 {
		t.Errorf("expected the first hash byte to be the low-order byte, got %d", u.Uint64())
	}
}

func TestU256Bytes32LERoundTrip(t *testing.T) {
	var h Hash
	for i := range h {
		h[i] = byte(i + 1)
	}
	u := U256FromHashLE(h)
	got := u.Bytes32LE()
	if [32]byte(h) != got {
		t.Fatalf("Bytes32LE round trip mismatch: got %x, want %x", got, h)
	}
}

func TestU256IsZero(t *testing.T) {
	if !ZeroU256.IsZero() {
		t.Fatal("ZeroU256 should report IsZero")
	}
	if U256FromUint64(1).IsZero() {
		t.Fatal("a nonzero value should not report IsZero")
	}
}
