// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"math/big"
	"testing"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/store"
	"github.com/gem-network/gem/params"
)

// TestTickMinesABlock drives the miner end to end: on testnet's
// deliberately loose PowLimit, a Tick attempt should satisfy the target
// within a small, bounded number of attempts and be accepted by
// State.PutBlock.
func TestTickMinesABlock(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	st := state.New(s, params.TestnetParams, pow.NewCache(pow.DefaultMaxVMs))
	if err := st.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	addr := crypto.DeriveAddress(pk)
	m := New(st, sk, pk, addr)

	var mined bool
	for i := 0; i < 200; i++ {
		b, err := m.Tick(big.NewInt(int64(i) * 15_000))
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if b != nil {
			mined = true
			if b.Header.Height != 1 {
				t.Fatalf("mined block height = %d, want 1", b.Header.Height)
			}
			break
		}
	}
	if !mined {
		t.Fatal("Tick did not mine a block within 200 attempts against testnet's PowLimit")
	}
	if st.Tip().Height != 1 {
		t.Fatalf("tip height after mining = %d, want 1", st.Tip().Height)
	}
}

// TestTickEmptyMempoolProducesEmptyBlock confirms the default,
// DrainMempool-disabled behavior builds empty candidate blocks.
func TestTickEmptyMempoolProducesEmptyBlock(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	st := state.New(s, params.TestnetParams, pow.NewCache(pow.DefaultMaxVMs))
	if err := st.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	m := New(st, sk, pk, crypto.DeriveAddress(pk))

	for i := 0; i < 200; i++ {
		b, err := m.Tick(big.NewInt(int64(i) * 15_000))
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if b != nil {
			if len(b.Transactions) != 0 {
				t.Fatalf("len(Transactions) = %d, want 0 with DrainMempool disabled", len(b.Transactions))
			}
			return
		}
	}
	t.Fatal("Tick did not mine a block within 200 attempts")
}
