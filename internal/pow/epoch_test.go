// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"testing"

	"github.com/gem-network/gem/internal/primitives"
)

func TestEpochSeedUsesEpochStartHeight(t *testing.T) {
	var calledWith uint64 = ^uint64(0)
	lookup := func(h uint64) (primitives.Hash, error) {
		calledWith = h
		return primitives.Hash{byte(h)}, nil
	}

	if _, err := EpochSeed(ChangeKey+5, lookup); err != nil {
		t.Fatalf("EpochSeed: %v", err)
	}
	if calledWith != ChangeKey {
		t.Errorf("EpochSeed(ChangeKey+5) looked up height %d, want %d", calledWith, ChangeKey)
	}
}

func TestEpochSeedSameWithinEpoch(t *testing.T) {
	lookup := func(h uint64) (primitives.Hash, error) {
		return primitives.Hash{byte(h)}, nil
	}
	a, err := EpochSeed(10, lookup)
	if err != nil {
		t.Fatalf("EpochSeed: %v", err)
	}
	b, err := EpochSeed(ChangeKey-1, lookup)
	if err != nil {
		t.Fatalf("EpochSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("heights within the same epoch should resolve the same seed")
	}
}
