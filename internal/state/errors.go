// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import "errors"

// Header/block invariant violations. Any of these rejects the block whole
// and, for a peer-originated block, is grounds to ban the sender
// (internal/network treats every error from PutBlock as ban-worthy).
var (
	ErrHeightMismatch     = errors.New("state: header.height != parent.height+1")
	ErrPrevBlockMismatch  = errors.New("state: header.prev_block != hash(parent)")
	ErrTxCountMismatch    = errors.New("state: header.transactions_count != len(transactions)")
	ErrMerkleMismatch     = errors.New("state: header.root != merkle_root(transactions)")
	ErrPowInvalid         = errors.New("state: pow_hash exceeds target")
	ErrNBitsMismatch      = errors.New("state: header.n_bits != compact(target)")
	ErrHeaderBadSignature = errors.New("state: header signature verification failed")
	ErrRewardInvalid      = errors.New("state: header.reward is not valid for this height")
	ErrDuplicateMempoolTx = errors.New("state: transaction already in mempool")
)
