// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"errors"
	"math/big"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/store"
)

// Bootstrap creates the genesis block if the store has no tip yet:
// height=0, prev_block=0^32, root=0^32, transactions_count=0. The genesis
// block is a hardcoded bootstrap value, not a mined or signed one; it is
// written directly rather than going through PutBlock's invariant checks,
// which have no parent to check against at height 0.
func (st *State) Bootstrap() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, err := st.store.GetTip()
	if err == nil {
		return st.loadTip()
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	genesis := &block.Header{
		Height:             0,
		TimestampMillis:    big.NewInt(0),
		PrevBlock:          primitives.ZeroHash,
		Generator:          primitives.Address{},
		GeneratorPublicKey: primitives.PublicKey{},
		Reward:             0,
		Root:               primitives.ZeroHash,
		TransactionsCount:  0,
		NBits:              primitives.EncodeCompact(st.params.PowLimit),
		Nonce:              0,
	}

	batch := st.store.NewBatch()
	batch.PutBlock(genesis, nil, true)
	if err := st.store.Commit(batch); err != nil {
		return err
	}

	Log.Infof("state: bootstrapped genesis block for network %s", st.params.Network)
	return st.loadTip()
}
