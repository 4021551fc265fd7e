// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package params groups the per-network constants a gem node needs.
package params

import (
	"fmt"
	"math/big"

	"github.com/gem-network/gem/internal/primitives"
)

// Network identifies which deployment a node is running against.
type Network uint8

const (
	// Mainnet is the production network.
	Mainnet Network = iota
	// Testnet is the public test network.
	Testnet
)

// String returns the network's name, as used for --network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	default:
		return "unknown"
	}
}

// ParseNetwork parses the --network flag value.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	default:
		return 0, fmt.Errorf("params: unknown network %q", s)
	}
}

// Params are the constants that vary by network.
type Params struct {
	Network  Network
	PowLimit primitives.U256
}

// mainnetPowLimit is 0x0007FFFF...FFFF (30 bytes of 0xFF after the leading
// 0x0007), the easiest (largest) target a mainnet block may claim.
var mainnetPowLimit = mustU256FromHex("0007FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")

// testnetPowLimit is 0x07FFFF...FFFF, looser than mainnet's.
var testnetPowLimit = mustU256FromHex("07FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")

// MainnetParams are the mainnet parameters.
var MainnetParams = Params{Network: Mainnet, PowLimit: mainnetPowLimit}

// TestnetParams are the testnet parameters.
var TestnetParams = Params{Network: Testnet, PowLimit: testnetPowLimit}

// ForNetwork returns the Params for a network.
func ForNetwork(n Network) Params {
	if n == Mainnet {
		return MainnetParams
	}
	return TestnetParams
}

func mustU256FromHex(hexStr string) primitives.U256 {
	bi, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		panic("params: invalid hex constant " + hexStr)
	}
	be := bi.Bytes()
	var buf [32]byte
	copy(buf[32-len(be):], be)
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = buf[31-i]
	}
	h := primitives.Hash(le)
	return primitives.U256FromHashLE(h)
}

// Reward is the fixed block reward.
const Reward uint64 = 1024

// RewardIsValid reports whether a block at the given height may claim
// reward. The schedule is currently flat, so every claim is valid; it takes
// the height so a future hard fork can change the schedule without changing
// the call sites.
func RewardIsValid(height uint64, reward uint64) bool {
	_ = height
	_ = reward
	return true
}
