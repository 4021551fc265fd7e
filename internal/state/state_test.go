// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"math/big"
	"testing"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/merkle"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/store"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/params"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	st := New(s, params.TestnetParams, pow.NewCache(pow.DefaultMaxVMs))
	if err := st.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return st
}

// TestBootstrapProducesGenesis checks that a fresh store bootstraps a
// height-0 block with a zero prev_block and an empty merkle root.
func TestBootstrapProducesGenesis(t *testing.T) {
	st := newTestState(t)
	tip := st.Tip()
	if tip.Height != 0 {
		t.Fatalf("genesis height = %d, want 0", tip.Height)
	}
	if tip.PrevBlock != primitives.ZeroHash {
		t.Fatal("genesis prev_block should be the zero hash")
	}
	if tip.Root != primitives.ZeroHash {
		t.Fatal("genesis root should be the zero hash")
	}
}

// TestBootstrapIsIdempotent covers the "already bootstrapped" path: calling
// Bootstrap again on a populated store must not recreate genesis or fail.
func TestBootstrapIsIdempotent(t *testing.T) {
	st := newTestState(t)
	firstTip := st.Tip()
	if err := st.Bootstrap(); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if st.Tip().Hash() != firstTip.Hash() {
		t.Fatal("a second Bootstrap call must not change the tip")
	}
}

// mineValidBlock builds and returns a block extending st's current tip that
// satisfies every PutBlock invariant, signed by a freshly generated key,
// which is returned alongside the header.
func mineValidBlock(t *testing.T, st *State, txs []*transaction.Transaction) (*block.Header, primitives.SecretKey) {
	t.Helper()
	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	tip := st.Tip()
	target := st.CurrentTarget()

	hashes := make([]primitives.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}

	h := &block.Header{
		Height:             tip.Height + 1,
		TimestampMillis:    big.NewInt(tip.TimestampMillis.Int64() + 15_000),
		PrevBlock:          tip.Hash(),
		Generator:          crypto.DeriveAddress(pk),
		GeneratorPublicKey: pk,
		Reward:             params.Reward,
		Root:               merkle.Root(hashes),
		TransactionsCount:  uint64(len(txs)),
		NBits:              primitives.EncodeCompact(target),
	}

	// The epoch seed is keyed by the epoch of the tip being extended, not
	// the candidate block's own height — mirroring state.powHashFor.
	seed, err := pow.EpochSeed(tip.Height, st.HeaderHashAt)
	if err != nil {
		t.Fatalf("EpochSeed: %v", err)
	}
	vm, err := st.VMCache().Create(seed)
	if err != nil {
		t.Fatalf("VMCache().Create: %v", err)
	}

	// Testnet's PoW limit admits roughly one hash in 32, so a satisfying
	// nonce turns up within a few dozen attempts.
	var powHash primitives.Hash
	for nonce := uint64(0); ; nonce++ {
		h.Nonce = nonce
		candidate := vm.CalculateHash(h.Hash().Bytes())
		if primitives.U256FromHashLE(candidate).LessOrEqual(target) {
			powHash = candidate
			break
		}
		if nonce > 10_000 {
			t.Fatal("failed to find a satisfying nonce within 10000 attempts")
		}
	}
	h.PowHash = powHash
	h.Sign(sk)
	return h, sk
}

// TestPutBlockAppliesSingleBlock checks that mining (and applying) one
// block on top of genesis advances height, tip and target.
func TestPutBlockAppliesSingleBlock(t *testing.T) {
	st := newTestState(t)
	h, _ := mineValidBlock(t, st, nil)

	if err := st.PutBlock(&block.Block{Header: h, Transactions: nil}); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if st.Tip().Height != 1 {
		t.Fatalf("tip height = %d, want 1", st.Tip().Height)
	}
	if st.Tip().Hash() != h.Hash() {
		t.Fatal("tip should be the newly applied block")
	}
}

// TestPutBlockRejectsWrongHeight covers the height-mismatch invariant,
// grounds for banning the sending peer in internal/network.
func TestPutBlockRejectsWrongHeight(t *testing.T) {
	st := newTestState(t)
	h, _ := mineValidBlock(t, st, nil)
	h.Height = 99
	if err := st.PutBlock(&block.Block{Header: h}); err != ErrHeightMismatch {
		t.Fatalf("PutBlock: got %v, want ErrHeightMismatch", err)
	}
}

// TestPutBlockCreditsGeneratorReward verifies the reward+fees credit step.
func TestPutBlockCreditsGeneratorReward(t *testing.T) {
	st := newTestState(t)
	h, _ := mineValidBlock(t, st, nil)
	if err := st.PutBlock(&block.Block{Header: h}); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	balance, err := st.AccountBalance(h.Generator)
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if balance != params.Reward {
		t.Fatalf("generator balance = %d, want %d", balance, params.Reward)
	}
}

// TestPutTransactionMempoolRejectsReplay checks that resubmitting a
// transaction already admitted to the mempool is rejected as a duplicate,
// before any sequence-number re-check runs.
func TestPutTransactionMempoolRejectsReplay(t *testing.T) {
	st := newTestState(t)

	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	// Fund the sender directly so it can cover the minimum fee.
	funded := &store.Account{
		Address:   crypto.DeriveAddress(pk),
		PublicKey: pk,
		Balance:   10 * transaction.MinFee,
	}
	batch := st.store.NewBatch()
	batch.PutAccount(funded)
	if err := st.store.Commit(batch); err != nil {
		t.Fatalf("Commit funded account: %v", err)
	}

	tx := &transaction.Transaction{
		Sender:          funded.Address,
		SenderPublicKey: pk,
		SequenceNumber:  1,
		Fee:             transaction.MinFee,
		TimestampMillis: big.NewInt(0),
		Data:            transaction.Transfer{Recipient: primitives.Address{9}, Amount_: 1},
	}
	tx.Sign(sk)

	if err := st.PutTransactionMempool(tx); err != nil {
		t.Fatalf("first PutTransactionMempool: %v", err)
	}
	if err := st.PutTransactionMempool(tx); err != ErrDuplicateMempoolTx {
		t.Fatalf("replayed PutTransactionMempool: got %v, want ErrDuplicateMempoolTx", err)
	}
}

// TestRetargetBeforeWindowStaysAtPowLimit checks that before N+1 headers
// exist, the target stays at powLimit.
func TestRetargetBeforeWindowStaysAtPowLimit(t *testing.T) {
	st := newTestState(t)
	if st.CurrentTarget().Cmp(params.TestnetParams.PowLimit) != 0 {
		t.Fatal("with fewer than N+1 headers, the target should remain powLimit")
	}
}

// TestPutBlockAcceptsEpochBoundaryBlock is a regression test for the epoch
// seed height bug: the block extending the tip at height ChangeKey-1 (so
// the new block's own height is ChangeKey, an exact epoch boundary) must
// resolve its PoW epoch seed from the header at height 0 (epoch start of
// tip.height = ChangeKey-1), not attempt to look up the header at
// ChangeKey itself, which does not exist until this very call commits it.
func TestPutBlockAcceptsEpochBoundaryBlock(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Fabricate a genesis header at height 0 too: the epoch containing
	// tip.height = ChangeKey-1 is epoch 0, so resolving its seed looks up
	// the header at height 0, not just the tip's own recent ancestors.
	bits := primitives.EncodeCompact(params.TestnetParams.PowLimit)
	genesis := &block.Header{Height: 0, TimestampMillis: big.NewInt(0), NBits: bits}
	genesisBatch := s.NewBatch()
	genesisBatch.PutBlock(genesis, nil, false)
	if err := s.Commit(genesisBatch); err != nil {
		t.Fatalf("Commit fabricated genesis: %v", err)
	}

	// Fabricate a chain of pow.N+1 headers ending at height ChangeKey-1,
	// bypassing PutBlock's invariant checks the way Bootstrap does for
	// genesis: only the LWMA-1 retarget window and the tip pointer need to
	// be in place, not full block validity for every ancestor.
	startHeight := uint64(pow.ChangeKey-1) - uint64(pow.N)
	var prevHash primitives.Hash
	for height := startHeight; height <= pow.ChangeKey-1; height++ {
		h := &block.Header{
			Height:          height,
			TimestampMillis: big.NewInt(int64(height) * pow.TargetSolveMillis),
			PrevBlock:       prevHash,
			Root:            primitives.ZeroHash,
			NBits:           bits,
			Nonce:           height,
		}
		batch := s.NewBatch()
		batch.PutBlock(h, nil, height == pow.ChangeKey-1)
		if err := s.Commit(batch); err != nil {
			t.Fatalf("Commit fabricated header at height %d: %v", height, err)
		}
		prevHash = h.Hash()
	}

	st := New(s, params.TestnetParams, pow.NewCache(pow.DefaultMaxVMs))
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Tip().Height != pow.ChangeKey-1 {
		t.Fatalf("fabricated tip height = %d, want %d", st.Tip().Height, pow.ChangeKey-1)
	}

	h, _ := mineValidBlock(t, st, nil)
	if h.Height != pow.ChangeKey {
		t.Fatalf("mined block height = %d, want %d", h.Height, pow.ChangeKey)
	}
	if err := st.PutBlock(&block.Block{Header: h}); err != nil {
		t.Fatalf("PutBlock at the epoch boundary: %v", err)
	}
	if st.Tip().Height != pow.ChangeKey {
		t.Fatalf("tip height after the epoch-boundary block = %d, want %d", st.Tip().Height, pow.ChangeKey)
	}
}
