// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/store"
)

// These read-only accessors take the same reader lock Tip/CurrentTarget do,
// so RPC reads never race a concurrent PutBlock.

// AccountBalance returns the balance on file for addr, or 0 if the address
// has never been referenced.
func (st *State) AccountBalance(addr primitives.Address) (uint64, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	a, err := st.store.GetAccountByAddress(addr)
	if err != nil {
		if err == store.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return a.Balance, nil
}

// HeaderByHeight looks up a header by height.
func (st *State) HeaderByHeight(height uint64) (*block.Header, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.store.GetBlockByHeight(height)
}

// HeaderByHash looks up a header by its hash.
func (st *State) HeaderByHash(hash primitives.Hash) (*block.Header, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.store.GetHeader(hash)
}

// BlockTransactionHashes returns the ordered transaction hashes recorded
// for a block header hash.
func (st *State) BlockTransactionHashes(headerHash primitives.Hash) ([]primitives.Hash, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	hashes, err := st.store.GetBlockTransactionHashes(headerHash)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return hashes, nil
}

// TransactionRaw returns the canonical encoded bytes of a committed
// transaction by hash, for callers (internal/network's sync responder)
// that need the full body rather than just the hash.
func (st *State) TransactionRaw(hash primitives.Hash) ([]byte, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.store.GetTransaction(hash)
}
