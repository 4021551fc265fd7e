// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transaction

import (
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
)

func newTestKeyPair(t *testing.T) (primitives.SecretKey, primitives.PublicKey) {
	t.Helper()
	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return sk, pk
}

func TestTransferEncodeDecodeRoundTrip(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	tx := &Transaction{
		Sender:          crypto.DeriveAddress(pk),
		SenderPublicKey: pk,
		SequenceNumber:  1,
		Fee:             MinFee,
		TimestampMillis: big.NewInt(1700000000000),
		Data: Transfer{
			Recipient:  primitives.Address{9, 9, 9},
			Amount_:    500,
			Attachment: "thanks",
		},
	}
	tx.Sign(sk)

	got, err := Decode(tx.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Hash() != tx.Hash() {
		t.Fatalf("round trip changed the transaction hash:\ngot  %s\nwant %s", spew.Sdump(got), spew.Sdump(tx))
	}
	if !got.VerifySignature() {
		t.Fatal("decoded transaction should still verify")
	}
}

func TestRotatePublicKeyEncodeDecodeRoundTrip(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	_, newPk := newTestKeyPair(t)
	tx := &Transaction{
		Sender:          crypto.DeriveAddress(pk),
		SenderPublicKey: pk,
		SequenceNumber:  1,
		Fee:             MinFee,
		TimestampMillis: big.NewInt(0),
		Data:            RotatePublicKey{PublicKey: newPk},
	}
	tx.Sign(sk)

	got, err := Decode(tx.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rotated, ok := got.Data.(RotatePublicKey)
	if !ok {
		t.Fatalf("decoded data is %T, want RotatePublicKey", got.Data)
	}
	if rotated.PublicKey != newPk {
		t.Fatalf("rotated.PublicKey = %x, want %x", rotated.PublicKey, newPk)
	}
}

func TestDecodeUnknownTypeTag(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	tx := &Transaction{
		Sender:          crypto.DeriveAddress(pk),
		SenderPublicKey: pk,
		SequenceNumber:  1,
		Fee:             MinFee,
		TimestampMillis: big.NewInt(0),
		Data:            Transfer{Recipient: primitives.Address{}, Amount_: 1},
	}
	tx.Sign(sk)
	raw := tx.Encode()

	// Corrupt the type tag byte: sender(32) + sender_public_key(32) +
	// seq(8) + fee(8) + timestamp(16) = 96 bytes precede it.
	raw[96] = 0xEE

	if _, err := Decode(raw); err != ErrUnknownType {
		t.Fatalf("Decode with a corrupt type tag: got %v, want ErrUnknownType", err)
	}
}

func TestHashIsPureFunctionOfCanonicalBytes(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	tx1 := &Transaction{
		Sender:          crypto.DeriveAddress(pk),
		SenderPublicKey: pk,
		SequenceNumber:  1,
		Fee:             MinFee,
		TimestampMillis: big.NewInt(0),
		Data:            Transfer{Recipient: primitives.Address{1}, Amount_: 1},
	}
	tx2 := *tx1
	tx1.Sign(sk)
	// Signing after computing the hash must not change it: the signature
	// is excluded from CanonicalBytes.
	if tx1.Hash() != tx2.Hash() {
		t.Fatal("Hash must not depend on the signature field")
	}
}
