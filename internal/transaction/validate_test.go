// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transaction

import (
	"math/big"
	"testing"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
)

type fakeAccounts map[primitives.PublicKey]AccountSnapshot

func (f fakeAccounts) Account(pk primitives.PublicKey) AccountSnapshot {
	return f[pk]
}

func signedTransfer(t *testing.T, sk primitives.SecretKey, pk primitives.PublicKey, seq, fee, amount uint64) *Transaction {
	t.Helper()
	tx := &Transaction{
		Sender:          crypto.DeriveAddress(pk),
		SenderPublicKey: pk,
		SequenceNumber:  seq,
		Fee:             fee,
		TimestampMillis: big.NewInt(0),
		Data:            Transfer{Recipient: primitives.Address{1}, Amount_: amount},
	}
	tx.Sign(sk)
	return tx
}

func TestValidateAccepts(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: 1_000_000, SequenceNumber: 0}}
	tx := signedTransfer(t, sk, pk, 1, MinFee, 1000)
	if err := Validate(tx, accounts); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: 1_000_000, SequenceNumber: 0}}
	tx := signedTransfer(t, sk, pk, 1, MinFee, 1000)
	tx.Signature[0] ^= 0xFF
	if err := Validate(tx, accounts); err != ErrBadSignature {
		t.Fatalf("Validate: got %v, want ErrBadSignature", err)
	}
}

func TestValidateRejectsSequenceMismatch(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: 1_000_000, SequenceNumber: 5}}
	tx := signedTransfer(t, sk, pk, 1, MinFee, 1000) // should be 6
	if err := Validate(tx, accounts); err != ErrSequenceMismatch {
		t.Fatalf("Validate: got %v, want ErrSequenceMismatch", err)
	}
}

func TestValidateRejectsInsufficientBalance(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: MinFee, SequenceNumber: 0}}
	tx := signedTransfer(t, sk, pk, 1, MinFee, 1000)
	if err := Validate(tx, accounts); err != ErrInsufficientBalance {
		t.Fatalf("Validate: got %v, want ErrInsufficientBalance", err)
	}
}

func TestValidateRejectsInsufficientFee(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: 1_000_000, SequenceNumber: 0}}
	tx := signedTransfer(t, sk, pk, 1, MinFee-1, 1000)
	if err := Validate(tx, accounts); err != ErrInsufficientFee {
		t.Fatalf("Validate: got %v, want ErrInsufficientFee", err)
	}
}

func TestValidateRejectsSenderMismatch(t *testing.T) {
	sk, pk := newTestKeyPair(t)
	accounts := fakeAccounts{pk: {PublicKey: pk, Balance: 1_000_000, SequenceNumber: 0}}
	tx := signedTransfer(t, sk, pk, 1, MinFee, 1000)
	tx.Sender = primitives.Address{0xAB}
	tx.Sign(sk) // re-sign so the signature check still passes
	if err := Validate(tx, accounts); err != ErrSenderMismatch {
		t.Fatalf("Validate: got %v, want ErrSenderMismatch", err)
	}
}
