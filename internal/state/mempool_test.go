// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"math/big"
	"testing"

	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/transaction"
)

// mempoolTx builds an unsigned transfer for white-box mempool tests.
// DrainCandidates never re-validates, so a signature is not needed here.
func mempoolTx(sender byte, seq, fee uint64) *transaction.Transaction {
	return &transaction.Transaction{
		Sender:          primitives.Address{sender},
		SenderPublicKey: primitives.PublicKey{sender},
		SequenceNumber:  seq,
		Fee:             fee,
		TimestampMillis: big.NewInt(0),
		Data:            transaction.Transfer{Recipient: primitives.Address{0xFF}, Amount_: 1},
	}
}

func insertMempool(st *State, txs ...*transaction.Transaction) {
	for _, tx := range txs {
		hash := tx.Hash()
		st.mempool[hash] = tx
		st.mempoolOrder = append(st.mempoolOrder, hash)
	}
}

func TestDrainCandidatesDisabledReturnsNothing(t *testing.T) {
	st := newTestState(t)
	insertMempool(st, mempoolTx(1, 1, transaction.MinFee))

	if got := st.DrainCandidates(10); got != nil {
		t.Fatalf("DrainCandidates with DrainMempool disabled = %d txs, want none", len(got))
	}
}

// TestDrainCandidatesOrdering checks the two ordering rules together:
// sender groups are taken fee-descending, and within a sender the
// transactions keep ascending sequence order regardless of insertion order.
func TestDrainCandidatesOrdering(t *testing.T) {
	st := newTestState(t)
	st.DrainMempool = true

	cheapB := mempoolTx(2, 1, transaction.MinFee)
	richA2 := mempoolTx(1, 2, 5*transaction.MinFee)
	richA1 := mempoolTx(1, 1, 5*transaction.MinFee)
	insertMempool(st, cheapB, richA2, richA1)

	got := st.DrainCandidates(10)
	if len(got) != 3 {
		t.Fatalf("DrainCandidates returned %d txs, want 3", len(got))
	}
	if got[0].Hash() != richA1.Hash() || got[1].Hash() != richA2.Hash() {
		t.Fatal("the higher-fee sender's transactions should come first, in sequence order")
	}
	if got[2].Hash() != cheapB.Hash() {
		t.Fatal("the lower-fee sender's transaction should come last")
	}
}

func TestDrainCandidatesHonorsMaxCount(t *testing.T) {
	st := newTestState(t)
	st.DrainMempool = true
	insertMempool(st,
		mempoolTx(1, 1, transaction.MinFee),
		mempoolTx(2, 1, transaction.MinFee),
		mempoolTx(3, 1, transaction.MinFee),
	)

	if got := st.DrainCandidates(2); len(got) != 2 {
		t.Fatalf("DrainCandidates(2) returned %d txs, want 2", len(got))
	}
}
