// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package state

import (
	"errors"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/store"
	"github.com/gem-network/gem/internal/transaction"
)

// scratchAccounts is the in-memory, read-through overlay block application
// mutates while validating a candidate block; reads fall through to the
// store on miss. Nothing here is durable until the caller writes it into a
// store.Batch and commits it.
//
// Every account, whether first seen as a sender (known public key) or as a
// Transfer recipient (address only), is resolved by address: the store
// always maintains an address -> accounts-column-family-key index
// (store.Account.Key()), so address is the one lookup path that works
// regardless of which form the account was created in. Entries are keyed in
// this map by address for the same reason.
type scratchAccounts struct {
	s       *store.Store
	entries map[primitives.Address]*store.Account

	// err holds the first genuine (non-ErrNotFound) store error resolve
	// encountered, if any. transaction.AccountReader's Account method has
	// no error return, so resolve cannot surface this at the point of
	// failure; PutBlock checks Err() before committing instead, which is
	// in time to reject the block rather than silently accept one
	// validated and applied against a wrongly-synthesized zero balance.
	err error
}

func newScratchAccounts(s *store.Store) *scratchAccounts {
	return &scratchAccounts{s: s, entries: make(map[primitives.Address]*store.Account)}
}

// Err returns the first genuine store error resolve swallowed while
// resolving an account, or nil if every resolution either hit the store
// cleanly or legitimately found no account yet (store.ErrNotFound).
func (sc *scratchAccounts) Err() error {
	return sc.err
}

// resolve returns the live scratch entry for addr, reading through to the
// store on first reference and synthesizing a zero-balance account if none
// exists yet. If knownPublicKey is non-zero and the resolved account has no
// public key on file yet, the account adopts it (this is how a recipient
// who later becomes a sender keeps their balance and sequence number under
// one identity).
func (sc *scratchAccounts) resolve(addr primitives.Address, knownPublicKey primitives.PublicKey) *store.Account {
	a, ok := sc.entries[addr]
	if !ok {
		var err error
		a, err = sc.s.GetAccountByAddress(addr)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) && sc.err == nil {
				// A genuinely broken store, not "account does not exist
				// yet" — record it so PutBlock can reject the block
				// instead of committing state built on a fabricated
				// zero-balance account.
				sc.err = err
			}
			a = &store.Account{Address: addr}
		}
		sc.entries[addr] = a
	}

	if !knownPublicKey.IsZero() && a.PublicKey.IsZero() {
		a.PublicKey = knownPublicKey
	}
	return a
}

// bySenderPublicKey resolves the account for a transaction sender, deriving
// the address from the public key the transaction itself carries.
func (sc *scratchAccounts) bySenderPublicKey(pk primitives.PublicKey) *store.Account {
	return sc.resolve(crypto.DeriveAddress(pk), pk)
}

// byAddress resolves an account known only by address (a Transfer
// recipient, or the block generator when only its address was on file).
func (sc *scratchAccounts) byAddress(addr primitives.Address) *store.Account {
	return sc.resolve(addr, primitives.PublicKey{})
}

// byGeneratorPublicKey resolves the block generator's account: scratch
// first, then store, then synthesized from the header's generator public
// key.
func (sc *scratchAccounts) byGeneratorPublicKey(addr primitives.Address, pk primitives.PublicKey) *store.Account {
	return sc.resolve(addr, pk)
}

// Account implements transaction.AccountReader.
func (sc *scratchAccounts) Account(pk primitives.PublicKey) transaction.AccountSnapshot {
	a := sc.bySenderPublicKey(pk)
	return transaction.AccountSnapshot{
		PublicKey:      a.PublicKey,
		Balance:        a.Balance,
		SequenceNumber: a.SequenceNumber,
	}
}

// all returns every touched account, for writing into a batch.
func (sc *scratchAccounts) all() []*store.Account {
	out := make([]*store.Account, 0, len(sc.entries))
	for _, a := range sc.entries {
		out = append(out, a)
	}
	return out
}
