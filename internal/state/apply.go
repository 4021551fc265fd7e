// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/params"
)

// PutBlock validates a candidate block against the current tip and, if
// every invariant holds, applies its transactions and commits the result in
// one atomic batch:
//
//  1. header invariants against the current tip and target
//  2. each transaction validated and applied in order against a scratch
//     overlay, accumulating fees
//  3. the block's fees and reward credited to the generator account
//  4. every touched account, the header, and the block's indexes written in
//     one batch
//  5. tip and LWMA-1 target refreshed
//
// Header invariant violations are reported as the sentinels in errors.go;
// transaction validation errors from internal/transaction and store,
// retarget and compact-decode errors are returned as they are. The caller
// (gossip or sync) treats any returned error as grounds to ban the peer the
// block came from.
func (st *State) PutBlock(b *block.Block) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	h := b.Header
	parent := st.tip

	if h.Height != parent.Height+1 {
		return ErrHeightMismatch
	}
	if h.PrevBlock != parent.Hash() {
		return ErrPrevBlockMismatch
	}
	if h.TransactionsCount != uint64(len(b.Transactions)) {
		return ErrTxCountMismatch
	}
	if h.Root != merkleRootOf(b.Transactions) {
		return ErrMerkleMismatch
	}

	target, err := st.retargetAt(parent.Height)
	if err != nil {
		return err
	}
	wantBits := primitives.EncodeCompact(target)
	if h.NBits != wantBits {
		return ErrNBitsMismatch
	}

	powHash, err := st.powHashFor(h, parent.Height)
	if err != nil {
		return err
	}
	powTarget, err := primitives.DecodeCompact(h.NBits)
	if err != nil {
		return err
	}
	if primitives.U256FromHashLE(powHash).Cmp(powTarget) > 0 {
		return ErrPowInvalid
	}

	if !h.VerifySignature() {
		return ErrHeaderBadSignature
	}

	sc := newScratchAccounts(st.store)
	var fees uint64
	txRaws := make([][]byte, len(b.Transactions))
	txHashes := make([]primitives.Hash, len(b.Transactions))

	for i, tx := range b.Transactions {
		if err := transaction.Validate(tx, sc); err != nil {
			return err
		}
		applyTransaction(sc, tx)
		fees += tx.Fee
		txRaws[i] = tx.Encode()
		txHashes[i] = tx.Hash()
	}

	generator := sc.byGeneratorPublicKey(h.Generator, h.GeneratorPublicKey)
	if !params.RewardIsValid(h.Height, h.Reward) {
		return ErrRewardInvalid
	}
	generator.Balance += h.Reward + fees

	if err := sc.Err(); err != nil {
		return err
	}

	h.PowHash = powHash

	batch := st.store.NewBatch()
	for _, a := range sc.all() {
		batch.PutAccount(a)
	}

	senderIndex := make(map[primitives.PublicKey][]primitives.Hash)
	for i, tx := range b.Transactions {
		batch.PutTransactionRaw(txHashes[i], txRaws[i])
		if _, ok := senderIndex[tx.SenderPublicKey]; !ok {
			existing, err := st.store.GetAccountTransactionHashes(tx.SenderPublicKey)
			if err != nil {
				return err
			}
			senderIndex[tx.SenderPublicKey] = existing
		}
		senderIndex[tx.SenderPublicKey] = append(senderIndex[tx.SenderPublicKey], txHashes[i])
	}
	for pk, hashes := range senderIndex {
		batch.PutAccountTransactionIndex(pk, hashes)
	}

	batch.PutBlock(h, txHashes, true)

	if err := st.store.Commit(batch); err != nil {
		return err
	}

	for _, hash := range txHashes {
		delete(st.mempool, hash)
	}
	st.pruneMempoolOrder()

	if err := st.loadTip(); err != nil {
		return err
	}
	Log.Infof("state: applied block %d (%s, %d tx)", h.Height, h.Hash(), len(b.Transactions))
	return nil
}

// applyTransaction mutates the sender's (and, for a Transfer, the
// recipient's) scratch account in place. Validate must have already
// approved tx against the same scratch overlay.
func applyTransaction(sc *scratchAccounts, tx *transaction.Transaction) {
	sender := sc.bySenderPublicKey(tx.SenderPublicKey)
	sender.SequenceNumber = tx.SequenceNumber

	switch data := tx.Data.(type) {
	case transaction.RotatePublicKey:
		sender.Balance -= tx.Fee
		sender.PublicKey = data.PublicKey
	case transaction.Transfer:
		// Subtracted separately: amount+fee can overflow uint64, which
		// is exactly the case transaction.Validate rejects piecewise.
		sender.Balance -= data.Amount_
		sender.Balance -= tx.Fee
		recipient := sc.byAddress(data.Recipient)
		recipient.Balance += data.Amount_
	}
}
