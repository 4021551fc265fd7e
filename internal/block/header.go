// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block implements the block header and block types: canonical
// bytes, the PoW hash, signing and verification.
package block

import (
	"math/big"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/wire"
)

// Header is a block header.
type Header struct {
	Height               uint64
	TimestampMillis      *big.Int
	PrevBlock            primitives.Hash
	Generator            primitives.Address
	GeneratorPublicKey   primitives.PublicKey
	Reward               uint64
	Root                 primitives.Hash
	TransactionsCount    uint64
	PowHash              primitives.Hash // derived, not part of signed bytes
	NBits                uint32
	Nonce                uint64
	Signature            primitives.Signature
}

// CanonicalBytes returns the signed form of the header:
// height(LE8) || timestamp(LE16) || prev_block || generator ||
// generator_public_key || reward(LE8) || root || transactions_count(LE8) ||
// n_bits(LE4) || nonce(LE8). pow_hash and signature are excluded.
func (h *Header) CanonicalBytes() []byte {
	w := wire.NewWriter(8 + 16 + 32 + 32 + 32 + 8 + 32 + 8 + 4 + 8)
	w.PutUint64LE(h.Height)
	w.PutUint128LE(h.TimestampMillis)
	w.PutBytes(h.PrevBlock[:])
	w.PutBytes(h.Generator[:])
	w.PutBytes(h.GeneratorPublicKey[:])
	w.PutUint64LE(h.Reward)
	w.PutBytes(h.Root[:])
	w.PutUint64LE(h.TransactionsCount)
	w.PutUint32LE(h.NBits)
	w.PutUint64LE(h.Nonce)
	return w.Bytes()
}

// Hash returns Blake2b-256 of the canonical bytes. This is the value hashed
// into the PoW VM, and the value the next block's prev_block field must
// equal.
func (h *Header) Hash() primitives.Hash {
	return crypto.Digest256(h.CanonicalBytes())
}

// Sign signs the header's canonical bytes.
func (h *Header) Sign(sk primitives.SecretKey) {
	h.Signature = crypto.Sign(sk, h.CanonicalBytes())
}

// VerifySignature checks the header's signature against its generator's
// public key.
func (h *Header) VerifySignature() bool {
	return crypto.VerifyStrict(h.GeneratorPublicKey, h.CanonicalBytes(), h.Signature)
}

// Encode serializes the full wire form: canonical bytes, then pow_hash and
// signature, which the store persists but which are not part of what is
// signed.
func (h *Header) Encode() []byte {
	w := wire.NewWriter(256)
	w.PutBytes(h.CanonicalBytes())
	w.PutBytes(h.PowHash[:])
	w.PutBytes(h.Signature[:])
	return w.Bytes()
}

// DecodeHeader parses the wire form produced by Encode.
func DecodeHeader(b []byte) (*Header, error) {
	r := wire.NewReader(b)
	h := &Header{}

	var err error
	h.Height, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}
	h.TimestampMillis, err = r.Uint128LE()
	if err != nil {
		return nil, err
	}
	prevBytes, err := r.Bytes(primitives.HashSize)
	if err != nil {
		return nil, err
	}
	h.PrevBlock, _ = primitives.NewHashFromBytes(prevBytes)

	genBytes, err := r.Bytes(primitives.AddressSize)
	if err != nil {
		return nil, err
	}
	h.Generator, _ = primitives.NewAddressFromBytes(genBytes)

	genPkBytes, err := r.Bytes(primitives.PublicKeySize)
	if err != nil {
		return nil, err
	}
	h.GeneratorPublicKey, _ = primitives.NewPublicKeyFromBytes(genPkBytes)

	h.Reward, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}

	rootBytes, err := r.Bytes(primitives.HashSize)
	if err != nil {
		return nil, err
	}
	h.Root, _ = primitives.NewHashFromBytes(rootBytes)

	h.TransactionsCount, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}
	h.NBits, err = r.Uint32LE()
	if err != nil {
		return nil, err
	}
	h.Nonce, err = r.Uint64LE()
	if err != nil {
		return nil, err
	}

	powBytes, err := r.Bytes(primitives.HashSize)
	if err != nil {
		return nil, err
	}
	h.PowHash, _ = primitives.NewHashFromBytes(powBytes)

	sigBytes, err := r.Bytes(primitives.SignatureSize)
	if err != nil {
		return nil, err
	}
	h.Signature, _ = primitives.NewSignatureFromBytes(sigBytes)

	return h, nil
}
