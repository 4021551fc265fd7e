// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import "encoding/hex"

// AddressSize is the length in bytes of an account address.
const AddressSize = 32

// PublicKeySize is the length in bytes of an Ed25519 public key.
const PublicKeySize = 32

// SecretKeySize is the length in bytes of an Ed25519 seed (secret key).
const SecretKeySize = 32

// SignatureSize is the length in bytes of an Ed25519 signature.
const SignatureSize = 64

// Address identifies an account. It is derived from the account's public
// key; see internal/crypto for the derivation function.
type Address [AddressSize]byte

// String returns the base58 text encoding of the address.
func (a Address) String() string {
	return EncodeBase58(a[:])
}

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// PublicKey is an Ed25519 public key. The zero value means "unknown" and is
// valid on an Account that has never signed a transaction.
type PublicKey [PublicKeySize]byte

// IsZero reports whether the public key is unset.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// String returns the base58 text encoding of the public key.
func (pk PublicKey) String() string {
	return EncodeBase58(pk[:])
}

// SecretKey is an Ed25519 seed used to derive a signing key pair.
type SecretKey [SecretKeySize]byte

// String returns the base58 text encoding of the secret key.
func (sk SecretKey) String() string {
	return EncodeBase58(sk[:])
}

// Signature is a 64-byte Ed25519 signature over an object's canonical bytes.
type Signature [SignatureSize]byte

// String returns the hex encoding of the signature.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// NewAddressFromBytes builds an Address from a byte slice, which must be
// exactly AddressSize bytes long.
func NewAddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, errInvalidLength("address", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// NewPublicKeyFromBytes builds a PublicKey from a byte slice.
func NewPublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, errInvalidLength("public key", PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// NewSecretKeyFromBytes builds a SecretKey from a byte slice.
func NewSecretKeyFromBytes(b []byte) (SecretKey, error) {
	var sk SecretKey
	if len(b) != SecretKeySize {
		return sk, errInvalidLength("secret key", SecretKeySize, len(b))
	}
	copy(sk[:], b)
	return sk, nil
}

// NewSignatureFromBytes builds a Signature from a byte slice.
func NewSignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, errInvalidLength("signature", SignatureSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}
