// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestFixedWidthRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.PutUint8(0xAB)
	w.PutUint32LE(0x01020304)
	w.PutUint64LE(0x0102030405060708)
	w.PutBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if v, err := r.Uint8(); err != nil || v != 0xAB {
		t.Fatalf("Uint8: got %v, %v", v, err)
	}
	if v, err := r.Uint32LE(); err != nil || v != 0x01020304 {
		t.Fatalf("Uint32LE: got %v, %v", v, err)
	}
	if v, err := r.Uint64LE(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("Uint64LE: got %v, %v", v, err)
	}
	b, err := r.Bytes(3)
	if err != nil || !spewEqual(b, []byte{1, 2, 3}) {
		t.Fatalf("Bytes: got %v, %v", b, err)
	}
}

func TestUint128LERoundTrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(1700000000000),
		new(big.Int).Lsh(big.NewInt(1), 100),
	}
	for _, want := range cases {
		w := NewWriter(0)
		w.PutUint128LE(want)
		r := NewReader(w.Bytes())
		got, err := r.Uint128LE()
		if err != nil {
			t.Fatalf("Uint128LE(%s): %v", want, err)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("Uint128LE round trip: got %s, want %s\n%s", got, want, spew.Sdump(got))
		}
	}
}

func TestVarBytesAndVarString(t *testing.T) {
	w := NewWriter(0)
	w.PutVarBytes([]byte("hello"))
	w.PutVarString("world")

	r := NewReader(w.Bytes())
	b, err := r.VarBytes()
	if err != nil || string(b) != "hello" {
		t.Fatalf("VarBytes: got %q, %v", b, err)
	}
	s, err := r.VarString()
	if err != nil || s != "world" {
		t.Fatalf("VarString: got %q, %v", s, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected no remaining bytes, got %d", r.Remaining())
	}
}

func TestReaderRejectsShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.Uint64LE(); err == nil {
		t.Fatal("expected error reading Uint64LE from a 2-byte buffer")
	}
}

func TestVarBytesRejectsOversizedLength(t *testing.T) {
	w := NewWriter(0)
	w.PutUint32LE(MaxVarDataSize + 1)
	r := NewReader(w.Bytes())
	if _, err := r.VarBytes(); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func spewEqual(a, b []byte) bool {
	return spew.Sdump(a) == spew.Sdump(b)
}
