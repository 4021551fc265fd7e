// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"golang.org/x/crypto/blake2b"

	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/wire"
)

// Account is the persisted account record. An account is created the first
// time it is referenced and is never deleted.
type Account struct {
	Address        primitives.Address
	PublicKey      primitives.PublicKey
	Balance        uint64
	SequenceNumber uint64
}

// Key returns the storage key the accounts column family indexes this
// account under: the public key when one is on file. An account's public
// key may still be the zero value, e.g. a Transfer recipient seen for the
// first time; indexing literally by a zero public key would collide every
// never-before-signed account into one slot, so such an account is keyed by
// a stable digest of its address instead. Once a transaction sets a real
// public key, the account moves to being keyed by that public key.
func (a *Account) Key() []byte {
	if a.PublicKey.IsZero() {
		sum := blake2b.Sum256(append([]byte("gem-account-by-address:"), a.Address[:]...))
		return sum[:]
	}
	k := make([]byte, primitives.PublicKeySize)
	copy(k, a.PublicKey[:])
	return k
}

// Encode serializes the account for storage.
func (a *Account) Encode() []byte {
	w := wire.NewWriter(32 + 32 + 8 + 8)
	w.PutBytes(a.Address[:])
	w.PutBytes(a.PublicKey[:])
	w.PutUint64LE(a.Balance)
	w.PutUint64LE(a.SequenceNumber)
	return w.Bytes()
}

// DecodeAccount parses the bytes produced by Encode.
func DecodeAccount(b []byte) (*Account, error) {
	r := wire.NewReader(b)
	a := &Account{}

	addrBytes, err := r.Bytes(primitives.AddressSize)
	if err != nil {
		return nil, err
	}
	a.Address, _ = primitives.NewAddressFromBytes(addrBytes)

	pkBytes, err := r.Bytes(primitives.PublicKeySize)
	if err != nil {
		return nil, err
	}
	a.PublicKey, _ = primitives.NewPublicKeyFromBytes(pkBytes)

	a.Balance, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}
	a.SequenceNumber, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}
	return a, nil
}
