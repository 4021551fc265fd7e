// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto provides the digest and signature primitives the chain
// relies on: Blake2b-256 for hashing and Ed25519 for signing.
package crypto

import (
	"crypto/ed25519"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/gem-network/gem/internal/primitives"
)

// ErrInvalidSignature is returned when a signature fails verification.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// Digest256 returns the Blake2b-256 hash of b.
func Digest256(b []byte) primitives.Hash {
	sum := blake2b.Sum256(b)
	return primitives.Hash(sum)
}

// DeriveAddress derives an account address as Blake2b-256(public_key).
// Derivation is independent of --network; the same key pair owns the same
// address on every network.
func DeriveAddress(pk primitives.PublicKey) primitives.Address {
	return primitives.Address(Digest256(pk[:]))
}

// GenerateKeyPair creates a fresh Ed25519 key pair, returning the secret seed
// and derived public key.
func GenerateKeyPair() (primitives.SecretKey, primitives.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return primitives.SecretKey{}, primitives.PublicKey{}, err
	}
	var sk primitives.SecretKey
	copy(sk[:], priv.Seed())
	var pk primitives.PublicKey
	copy(pk[:], pub)
	return sk, pk, nil
}

// PublicKeyFromSecret derives the Ed25519 public key for a seed.
func PublicKeyFromSecret(sk primitives.SecretKey) primitives.PublicKey {
	priv := ed25519.NewKeyFromSeed(sk[:])
	pub := priv.Public().(ed25519.PublicKey)
	var pk primitives.PublicKey
	copy(pk[:], pub)
	return pk
}

// Sign signs the canonical bytes of an object with an Ed25519 seed.
func Sign(sk primitives.SecretKey, canonicalBytes []byte) primitives.Signature {
	priv := ed25519.NewKeyFromSeed(sk[:])
	sig := ed25519.Sign(priv, canonicalBytes)
	var out primitives.Signature
	copy(out[:], sig)
	return out
}

// VerifyStrict verifies a signature over canonicalBytes, rejecting
// small-order public keys in addition to the usual signature check. The
// stdlib ed25519.Verify already rejects non-canonical signature encodings
// (S and R malleability); the small-order public key check is added
// explicitly since the stdlib does not perform it.
func VerifyStrict(pk primitives.PublicKey, canonicalBytes []byte, sig primitives.Signature) bool {
	if isSmallOrderPublicKey(pk) {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk[:]), canonicalBytes, sig[:])
}

// smallOrderPoints is the standard table of low-order Ed25519 points (order
// dividing 8) that verify_strict implementations reject so that signature
// verification cannot be satisfied by a degenerate public key.
var smallOrderPoints = [][32]byte{
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0xec, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f},
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80},
	{0xed, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	{0x26, 0xe8, 0x95, 0x8f, 0xc2, 0xb2, 0x27, 0xb0, 0x45, 0xc3, 0xf4, 0x89, 0xf2, 0xef, 0x98, 0xf0, 0xd5, 0xdf, 0xac, 0x05, 0xd3, 0xc6, 0x33, 0x39, 0xb1, 0x38, 0x02, 0x88, 0x6d, 0x53, 0xfc, 0x05},
	{0xc7, 0x17, 0x6a, 0x70, 0x3d, 0x4d, 0xd8, 0x4f, 0xba, 0x3c, 0x0b, 0x76, 0x0d, 0x10, 0x67, 0x0f, 0x2a, 0x20, 0x53, 0xfa, 0x2c, 0x39, 0xcc, 0xc6, 0x4e, 0xc7, 0xfd, 0x77, 0x92, 0xac, 0x03, 0x7a},
}

func isSmallOrderPublicKey(pk primitives.PublicKey) bool {
	for _, p := range smallOrderPoints {
		if pk == primitives.PublicKey(p) {
			return true
		}
	}
	return false
}
