// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements the node's single-key wallet file: a password
// protected, Argon2id-wrapped ChaCha20-Poly1305 encryption of the Ed25519
// secret seed. Key generation and import are driven from gemd's own flag
// set rather than a companion tool.
package wallet

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/primitives"
)

const (
	saltSize  = 32
	nonceSize = 12

	// Argon2id parameters. Changing any of these orphans every existing
	// wallet.dat.
	argonTimeCost   = 1
	argonMemoryKiB  = 1024
	argonThreads    = 1
	argonKeyLen     = chacha20poly1305.KeySize
)

// ErrWrongPassword is returned when decryption fails, almost always because
// the password is wrong (or the file is corrupt).
var ErrWrongPassword = errors.New("wallet: decryption failed (wrong password or corrupt file)")

// Wallet holds a decrypted secret key in memory; it is never written to
// disk in this form.
type Wallet struct {
	SecretKey primitives.SecretKey
	PublicKey primitives.PublicKey
}

// Generate creates a fresh key pair.
func Generate() (*Wallet, error) {
	sk, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Wallet{SecretKey: sk, PublicKey: pk}, nil
}

// Import builds a wallet around an already-known secret key, e.g. from
// --import-secret-key.
func Import(sk primitives.SecretKey) *Wallet {
	return &Wallet{SecretKey: sk, PublicKey: crypto.PublicKeyFromSecret(sk)}
}

// Save encrypts the wallet's secret key with password and writes the
// resulting 92-byte record, hex-encoded, to path. The format is
// salt[32] || nonce[12] || ChaCha20-Poly1305(secret[32], key, nonce),
// ciphertext+tag = 48 bytes.
func (w *Wallet) Save(path string, password []byte) error {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}

	aead, err := newAEAD(password, salt[:])
	if err != nil {
		return err
	}
	ciphertext := aead.Seal(nil, nonce[:], w.SecretKey[:], nil)

	record := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	record = append(record, salt[:]...)
	record = append(record, nonce[:]...)
	record = append(record, ciphertext...)

	return os.WriteFile(path, []byte(hex.EncodeToString(record)), 0600)
}

// Load reads and decrypts the wallet file at path.
func Load(path string, password []byte) (*Wallet, error) {
	hexBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	record, err := hex.DecodeString(string(hexBytes))
	if err != nil {
		return nil, fmt.Errorf("wallet: malformed wallet file: %w", err)
	}
	if len(record) != saltSize+nonceSize+primitives.SecretKeySize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("wallet: wallet file has unexpected length %d", len(record))
	}

	salt := record[:saltSize]
	nonce := record[saltSize : saltSize+nonceSize]
	ciphertext := record[saltSize+nonceSize:]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}

	sk, err := primitives.NewSecretKeyFromBytes(plain)
	if err != nil {
		return nil, err
	}
	return &Wallet{SecretKey: sk, PublicKey: crypto.PublicKeyFromSecret(sk)}, nil
}

func newAEAD(password, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(password, salt, argonTimeCost, argonMemoryKiB, argonThreads, argonKeyLen)
	return chacha20poly1305.New(key)
}
