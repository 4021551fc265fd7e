// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"sort"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/transaction"
)

// PutTransactionMempool admits tx into the mempool. A transaction already
// present by hash is rejected outright, before any sequence or balance
// check runs against it again.
func (st *State) PutTransactionMempool(tx *transaction.Transaction) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	hash := tx.Hash()
	if _, ok := st.mempool[hash]; ok {
		return ErrDuplicateMempoolTx
	}

	if err := transaction.Validate(tx, st); err != nil {
		return err
	}

	st.mempool[hash] = tx
	st.mempoolOrder = append(st.mempoolOrder, hash)
	return nil
}

// Account implements transaction.AccountReader directly against the store,
// for mempool admission where there is no in-flight scratch overlay. Like
// block application, it finds the account by the address pk derives, so an
// account funded before its public key was on file is found too.
func (st *State) Account(pk primitives.PublicKey) transaction.AccountSnapshot {
	a, err := st.store.GetAccountByAddress(crypto.DeriveAddress(pk))
	if err != nil {
		return transaction.AccountSnapshot{}
	}
	return transaction.AccountSnapshot{
		PublicKey:      a.PublicKey,
		Balance:        a.Balance,
		SequenceNumber: a.SequenceNumber,
	}
}

// pruneMempoolOrder drops hashes from mempoolOrder that PutBlock already
// removed from the mempool map. Called with the write lock already held.
func (st *State) pruneMempoolOrder() {
	kept := st.mempoolOrder[:0]
	for _, h := range st.mempoolOrder {
		if _, ok := st.mempool[h]; ok {
			kept = append(kept, h)
		}
	}
	st.mempoolOrder = kept
}

// DrainCandidates returns up to maxCount mempool transactions for a miner's
// candidate block, fee-descending and grouped by sender (so a sender's
// transactions keep their required sequence order within the group). It
// returns nothing unless DrainMempool is enabled.
func (st *State) DrainCandidates(maxCount int) []*transaction.Transaction {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if !st.DrainMempool || maxCount <= 0 {
		return nil
	}

	bySender := make(map[primitives.Address][]*transaction.Transaction)
	for _, hash := range st.mempoolOrder {
		tx, ok := st.mempool[hash]
		if !ok {
			continue
		}
		bySender[tx.Sender] = append(bySender[tx.Sender], tx)
	}
	for _, txs := range bySender {
		sort.Slice(txs, func(i, j int) bool { return txs[i].SequenceNumber < txs[j].SequenceNumber })
	}

	groups := make([][]*transaction.Transaction, 0, len(bySender))
	for _, txs := range bySender {
		groups = append(groups, txs)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0].Fee > groups[j][0].Fee })

	out := make([]*transaction.Transaction, 0, maxCount)
	for _, group := range groups {
		for _, tx := range group {
			if len(out) == maxCount {
				return out
			}
			out = append(out, tx)
		}
	}
	return out
}
