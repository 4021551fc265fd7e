// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package miner implements the attempt-per-tick block producer: one nonce
// attempt per scheduling tick, built on the same State/pow.Cache the
// validation path uses so a block this node mines always validates against
// its own rules.
package miner

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/decred/slog"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/merkle"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/params"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// maxCandidateTransactions bounds how many mempool transactions a candidate
// block drains at once, keeping a gossiped block comfortably under the
// network layer's transmit limit.
const maxCandidateTransactions = 2000

// Miner owns the generator identity and drives one mining attempt per Tick
// call. It holds no lock of its own; all synchronization against chain
// state goes through State.
type Miner struct {
	state              *state.State
	generatorAddress   primitives.Address
	generatorPublicKey primitives.PublicKey
	secretKey          primitives.SecretKey
}

// New builds a miner that signs blocks with sk and credits the reward to
// the address that key derives.
func New(st *state.State, sk primitives.SecretKey, pk primitives.PublicKey, addr primitives.Address) *Miner {
	return &Miner{state: st, generatorAddress: addr, generatorPublicKey: pk, secretKey: sk}
}

// Tick performs exactly one mining attempt. It returns the mined block on
// success, or (nil, nil) if the attempt's nonce did not satisfy the current
// target; the caller (the scheduler) retries on the next tick.
func (m *Miner) Tick(nowMillis *big.Int) (*block.Block, error) {
	tip := m.state.Tip()
	target := m.state.CurrentTarget()
	txs := m.state.DrainCandidates(maxCandidateTransactions)

	h := &block.Header{
		Height:             tip.Height + 1,
		TimestampMillis:    nowMillis,
		PrevBlock:          tip.Hash(),
		Generator:          m.generatorAddress,
		GeneratorPublicKey: m.generatorPublicKey,
		Reward:             params.Reward,
		Root:               merkleRootOf(txs),
		TransactionsCount:  uint64(len(txs)),
		NBits:              primitives.EncodeCompact(target),
		Nonce:              randomNonce(),
	}

	powHash, err := m.powHash(h, tip.Height)
	if err != nil {
		return nil, err
	}
	if primitives.U256FromHashLE(powHash).Cmp(target) > 0 {
		Log.Tracef("miner: attempt at height %d missed target", h.Height)
		return nil, nil
	}

	h.PowHash = powHash
	h.Sign(m.secretKey)

	b := &block.Block{Header: h, Transactions: txs}
	if err := m.state.PutBlock(b); err != nil {
		return nil, err
	}
	Log.Infof("miner: mined block %d (%s)", h.Height, h.Hash())
	return b, nil
}

// powHash resolves the epoch VM for the epoch of tipHeight (the header h
// extends) and computes h's PoW hash, mirroring internal/state's
// validation-side computation exactly so a locally mined block is
// guaranteed to pass its own node's checks. Keying the epoch off h.Height
// instead would look up the header at the height currently being mined,
// which does not exist yet at every exact multiple of pow.ChangeKey.
func (m *Miner) powHash(h *block.Header, tipHeight uint64) (primitives.Hash, error) {
	seed, err := pow.EpochSeed(tipHeight, m.state.HeaderHashAt)
	if err != nil {
		return primitives.Hash{}, err
	}
	vm, err := m.state.VMCache().Create(seed)
	if err != nil {
		return primitives.Hash{}, err
	}
	return vm.CalculateHash(h.Hash().Bytes()), nil
}

func merkleRootOf(txs []*transaction.Transaction) primitives.Hash {
	hashes := make([]primitives.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return merkle.Root(hashes)
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is only possible in a broken environment; a
		// zero nonce is a safe, if unlucky, fallback for a single attempt.
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}
