// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle computes the deterministic binary hash tree committing a
// block's transactions.
package merkle

import (
	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
)

// Root computes the merkle root over an ordered list of transaction hashes.
//
// The leaf level is padded to an even count once and never again; the
// padded level is then reduced pairwise until exactly one node remains,
// carrying any dangling odd node at a non-leaf level up unhashed. Building
// a fixed log2(paddedCount) number of levels instead would only be
// well-defined when paddedCount is a power of two; full reduction
// terminates at a single root for any transaction count.
//
// An empty input is padded to two zero hashes.
func Root(hashes []primitives.Hash) primitives.Hash {
	level := prepareLeaves(hashes)
	for len(level) > 1 {
		level = combineLevel(level)
	}
	return level[0]
}

// Verify reconstructs the merkle root from txHashes and reports whether it
// equals want.
func Verify(txHashes []primitives.Hash, want primitives.Hash) bool {
	return Root(txHashes) == want
}

func prepareLeaves(hashes []primitives.Hash) []primitives.Hash {
	if len(hashes) == 0 {
		return []primitives.Hash{primitives.ZeroHash, primitives.ZeroHash}
	}
	level := make([]primitives.Hash, len(hashes))
	copy(level, hashes)
	if len(level)%2 != 0 {
		level = append(level, primitives.ZeroHash)
	}
	return level
}

// combineLevel hashes consecutive pairs, producing ceil(len/2) nodes. If an
// odd node is left dangling (only possible above the leaf level, since the
// leaves are padded to even once and never again), it is carried up
// unhashed.
func combineLevel(level []primitives.Hash) []primitives.Hash {
	next := make([]primitives.Hash, 0, (len(level)+1)/2)
	i := 0
	for ; i+1 < len(level); i += 2 {
		next = append(next, combine(level[i], level[i+1]))
	}
	if i < len(level) {
		next = append(next, level[i])
	}
	return next
}

func combine(left, right primitives.Hash) primitives.Hash {
	buf := make([]byte, 0, 2*primitives.HashSize)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return crypto.Digest256(buf)
}
