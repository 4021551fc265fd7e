// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"math/big"

	"github.com/gem-network/gem/internal/primitives"
)

// N is the number of solve-time samples LWMA-1 averages over.
const N = 50

// TargetSolveMillis is T, the target solve time in milliseconds.
const TargetSolveMillis = 15_000

// HeaderSample is the minimal view of a header LWMA-1 needs.
type HeaderSample struct {
	TimestampMillis *big.Int
	NBits           uint32
}

// k is the normalization constant N*(N+1)*T/2.
func k() uint64 {
	return uint64(N) * uint64(N+1) * uint64(TargetSolveMillis) / 2
}

// Retarget computes the next block's target from the last N+1 headers
// ending at the parent of the block being considered (headers[0] supplies
// only its timestamp, as the starting point prev_ts; headers[1..N] are the
// weighted samples). If fewer than N+1 headers are available, the target is
// powLimit.
//
// The division order matters: each decoded target is divided by N and by k
// before the weighted-solve-time multiplication. Reordering would change
// integer rounding and fork any node that disagrees.
func Retarget(headers []HeaderSample, powLimit primitives.U256) (primitives.U256, error) {
	if len(headers) < N+1 {
		return powLimit, nil
	}
	// Only the most recent N+1 samples matter.
	headers = headers[len(headers)-(N+1):]

	prevTs := new(big.Int).Set(headers[0].TimestampMillis)
	sumWeightedSolve := uint64(0)
	avgTarget := primitives.ZeroU256
	nU := primitives.U256FromUint64(N)
	kU := primitives.U256FromUint64(k())

	sixT := big.NewInt(6 * TargetSolveMillis)

	for i := 1; i <= N; i++ {
		ts := new(big.Int).Set(headers[i].TimestampMillis)
		minTs := new(big.Int).Add(prevTs, big.NewInt(1))
		if ts.Cmp(minTs) < 0 {
			ts = minTs
		}

		solve := new(big.Int).Sub(ts, prevTs)
		if solve.Cmp(sixT) > 0 {
			solve = sixT
		}
		prevTs = ts

		j := uint64(i)
		sumWeightedSolve += solve.Uint64() * j

		target, err := primitives.DecodeCompact(headers[i].NBits)
		if err != nil {
			return primitives.ZeroU256, err
		}
		avgTarget = avgTarget.Add(target.Div(nU).Div(kU))
	}

	computed := avgTarget.Mul(primitives.U256FromUint64(sumWeightedSolve))
	if computed.Cmp(powLimit) > 0 {
		return powLimit, nil
	}
	return computed, nil
}
