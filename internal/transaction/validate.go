// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transaction

import (
	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
)

// AccountSnapshot is the minimal read-only view of a pre-apply account that
// Validate needs. internal/state implements this over its scratch map
// falling through to the store.
type AccountSnapshot struct {
	PublicKey      primitives.PublicKey
	Balance        uint64
	SequenceNumber uint64
}

// AccountReader resolves the current snapshot for a sender's public key. A
// sender never seen before reads back the zero AccountSnapshot.
type AccountReader interface {
	Account(pk primitives.PublicKey) AccountSnapshot
}

// Validate checks a transaction against pre-apply state: signature,
// sender/public-key consistency, strict sequence continuation, balance
// sufficiency, and the minimum fee.
func Validate(tx *Transaction, accounts AccountReader) error {
	if !tx.VerifySignature() {
		return ErrBadSignature
	}

	derivedSender := crypto.DeriveAddress(tx.SenderPublicKey)
	if derivedSender != tx.Sender {
		return ErrSenderMismatch
	}

	snap := accounts.Account(tx.SenderPublicKey)
	if snap.SequenceNumber+1 != tx.SequenceNumber {
		return ErrSequenceMismatch
	}

	// Checked separately rather than as snap.Balance < amount+fee: Amount()
	// and Fee are both attacker-controlled uint64s, and their sum can wrap
	// past the sender's real balance on overflow.
	amount := tx.Data.Amount()
	if amount > snap.Balance || tx.Fee > snap.Balance-amount {
		return ErrInsufficientBalance
	}

	if tx.Fee < minFeeFor(tx.Data) {
		return ErrInsufficientFee
	}

	return nil
}
