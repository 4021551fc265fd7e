// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import "github.com/gem-network/gem/internal/primitives"

// ChangeKey is the number of blocks an epoch spans; the VM seed rotates at
// every multiple of it.
const ChangeKey = 8640

// HeaderHashAt resolves the header hash at a given height. internal/state
// and internal/store both implement enough surface to satisfy this.
type HeaderHashAt func(height uint64) (primitives.Hash, error)

// EpochSeed returns the 32-byte seed for the epoch containing height h: the
// header hash at height floor(h/ChangeKey)*ChangeKey. Miners and validators
// must call this with the same lookup function so they agree on the seed
// for a given height.
func EpochSeed(h uint64, lookup HeaderHashAt) ([]byte, error) {
	epochStart := (h / ChangeKey) * ChangeKey
	seed, err := lookup(epochStart)
	if err != nil {
		return nil, err
	}
	return seed[:], nil
}
