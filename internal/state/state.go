// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package state implements chain ingestion: genesis bootstrap, block
// application, mempool management, and the Syncing/Live flag.
package state

import (
	"sync"

	"github.com/decred/slog"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/merkle"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/store"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/params"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// State is the single writer of chain data. Gossip and sync handlers take
// the exclusive writer for the duration of one block application; mining
// setup, sync-send, and RPC reads take shared readers.
type State struct {
	mu sync.RWMutex

	store   *store.Store
	params  params.Params
	vmCache *pow.Cache

	tip           *block.Header
	currentTarget primitives.U256

	mempool     map[primitives.Hash]*transaction.Transaction
	mempoolOrder []primitives.Hash

	isSync bool

	// DrainMempool, when true, makes DrainCandidates (used by the miner)
	// select fee-descending transactions from the mempool instead of
	// leaving the block empty. Off by default: an empty-block miner is
	// always safe, a draining one inherits mempool quality.
	DrainMempool bool
}

// New wraps an opened store with the chain state machine. Call Bootstrap
// once before using it on a fresh data directory.
func New(s *store.Store, p params.Params, vmCache *pow.Cache) *State {
	return &State{
		store:   s,
		params:  p,
		vmCache: vmCache,
		mempool: make(map[primitives.Hash]*transaction.Transaction),
		isSync:  true,
	}
}

// Tip returns the current tip header. Safe for concurrent use.
func (st *State) Tip() *block.Header {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.tip
}

// CurrentTarget returns the PoW target new blocks built on the current tip
// must satisfy.
func (st *State) CurrentTarget() primitives.U256 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.currentTarget
}

// IsSync reports whether the node considers itself caught up with its
// peers. Mining and gossip intake only proceed when this is true.
func (st *State) IsSync() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.isSync
}

// SetSync updates the Syncing/Live flag; the network's periodic sync task
// owns this transition.
func (st *State) SetSync(v bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.isSync = v
}

// VMCache exposes the shared PoW-VM cache so the miner can reuse the exact
// instance validation uses for the same epoch.
func (st *State) VMCache() *pow.Cache {
	return st.vmCache
}

// HeaderHashAt implements pow.HeaderHashAt for epoch-seed resolution.
func (st *State) HeaderHashAt(height uint64) (primitives.Hash, error) {
	h, err := st.store.GetBlockByHeight(height)
	if err != nil {
		return primitives.Hash{}, err
	}
	return h.Hash(), nil
}

// headerSamplesEndingAt collects up to count HeaderSamples for LWMA-1,
// oldest first, ending at (and including) height. Fewer than count are
// returned if height < count-1.
func (st *State) headerSamplesEndingAt(height uint64, count int) ([]pow.HeaderSample, error) {
	if height+1 < uint64(count) {
		count = int(height + 1)
	}
	out := make([]pow.HeaderSample, count)
	for i := 0; i < count; i++ {
		h, err := st.store.GetBlockByHeight(height - uint64(count-1-i))
		if err != nil {
			return nil, err
		}
		out[i] = pow.HeaderSample{TimestampMillis: h.TimestampMillis, NBits: h.NBits}
	}
	return out, nil
}

// retargetAt computes the PoW target that a block built on top of the
// header at parentHeight must satisfy.
func (st *State) retargetAt(parentHeight uint64) (primitives.U256, error) {
	samples, err := st.headerSamplesEndingAt(parentHeight, pow.N+1)
	if err != nil {
		return primitives.U256{}, err
	}
	return pow.Retarget(samples, st.params.PowLimit)
}

// headerHashForEpoch resolves the epoch seed for the PoW VM that validates
// (or mines) the block extending the header at tipHeight. The seed is keyed
// by the tip's height, not the candidate's: using the candidate block's own
// height would make EpochSeed look up the header at the very height being
// produced, which does not exist yet at every exact multiple of ChangeKey.
func (st *State) headerHashForEpoch(tipHeight uint64) ([]byte, error) {
	return pow.EpochSeed(tipHeight, st.HeaderHashAt)
}

// powHashFor computes the PoW hash of a candidate header extending the
// header at tipHeight, using the shared VM cache keyed by that epoch's
// seed.
func (st *State) powHashFor(h *block.Header, tipHeight uint64) (primitives.Hash, error) {
	seed, err := st.headerHashForEpoch(tipHeight)
	if err != nil {
		return primitives.Hash{}, err
	}
	vm, err := st.vmCache.Create(seed)
	if err != nil {
		return primitives.Hash{}, err
	}
	return vm.CalculateHash(h.Hash().Bytes()), nil
}

// loadTip refreshes the in-memory tip and target from the store; called
// once at startup after Bootstrap, and after every committed block.
func (st *State) loadTip() error {
	tip, err := st.store.GetTip()
	if err != nil {
		return err
	}
	target, err := st.retargetAt(tip.Height)
	if err != nil {
		return err
	}
	st.tip = tip
	st.currentTarget = target
	return nil
}

// Load initializes in-memory tip/target state from an already-bootstrapped
// store. Call once at startup, after Bootstrap.
func (st *State) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loadTip()
}

func merkleRootOf(txs []*transaction.Transaction) primitives.Hash {
	hashes := make([]primitives.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return merkle.Root(hashes)
}
