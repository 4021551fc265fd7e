// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store implements the persistent column-family key-value layer
// over github.com/syndtr/goleveldb.
//
// goleveldb has no native column-family concept, so families are modeled as
// single-byte key prefixes within one database instance. A single batch can
// then span every family, which is what gives block application its
// all-or-nothing commit.
package store

import (
	"encoding/binary"
	"errors"

	"github.com/decred/slog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// ErrNotFound is returned by lookups that miss. Callers decide the
// fallback; nothing in this package panics on a miss.
var ErrNotFound = errors.New("store: not found")

// Column family prefixes, one byte each.
const (
	cfBlockHeaders         = 0x01 // header_hash -> serialized header
	cfBlockHeadersByHeight = 0x02 // height(LE8) -> header_hash
	cfBlockTransactions    = 0x03 // header_hash -> concat(tx_hash x N)
	cfTransactions         = 0x04 // tx_hash -> serialized transaction
	cfAccounts             = 0x05 // Account.Key() -> serialized account
	cfAccountsByAddress    = 0x06 // address -> Account.Key()
	cfAccountsTransactions = 0x07 // public_key -> concat(tx_hash x N)
	cfInfo                 = 0x08 // fixed keys, e.g. "last_header"
)

// infoLastHeader is the fixed info key holding the tip's header hash.
var infoLastHeader = []byte("last_header")

// Store is the process-wide KV handle, opened once at startup.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the leveldb database rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, err
	}
	Log.Infof("store: opened database at %s", dir)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func cfKey(cf byte, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = cf
	copy(out[1:], key)
	return out
}

func heightKey(height uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], height)
	return b[:]
}

func (s *Store) get(cf byte, key []byte) ([]byte, error) {
	v, err := s.db.Get(cfKey(cf, key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// GetHeader looks up a header by its hash.
func (s *Store) GetHeader(hash primitives.Hash) (*block.Header, error) {
	b, err := s.get(cfBlockHeaders, hash[:])
	if err != nil {
		return nil, err
	}
	return block.DecodeHeader(b)
}

// GetHeaderHashAtHeight returns the header hash stored for a height.
func (s *Store) GetHeaderHashAtHeight(height uint64) (primitives.Hash, error) {
	b, err := s.get(cfBlockHeadersByHeight, heightKey(height))
	if err != nil {
		return primitives.Hash{}, err
	}
	return primitives.NewHashFromBytes(b)
}

// GetBlockByHeight looks up the header hash recorded for a height and
// resolves it to the header.
func (s *Store) GetBlockByHeight(height uint64) (*block.Header, error) {
	hash, err := s.GetHeaderHashAtHeight(height)
	if err != nil {
		return nil, err
	}
	return s.GetHeader(hash)
}

// GetTip returns the header the info/last_header pointer names. That
// pointer is the single definition of the tip.
func (s *Store) GetTip() (*block.Header, error) {
	b, err := s.get(cfInfo, infoLastHeader)
	if err != nil {
		return nil, err
	}
	hash, err := primitives.NewHashFromBytes(b)
	if err != nil {
		return nil, err
	}
	return s.GetHeader(hash)
}

// GetTransaction looks up a transaction by hash.
func (s *Store) GetTransaction(hash primitives.Hash) ([]byte, error) {
	return s.get(cfTransactions, hash[:])
}

// GetBlockTransactionHashes returns the ordered transaction hashes recorded
// for a block.
func (s *Store) GetBlockTransactionHashes(headerHash primitives.Hash) ([]primitives.Hash, error) {
	b, err := s.get(cfBlockTransactions, headerHash[:])
	if err != nil {
		return nil, err
	}
	return decodeHashList(b)
}

// GetAccountByPublicKey looks up an account by its public key. This only
// finds accounts that have a known (non-zero) public key on file; use
// GetAccountByAddress to resolve an address that may only be known as a
// Transfer recipient so far.
func (s *Store) GetAccountByPublicKey(pk primitives.PublicKey) (*Account, error) {
	b, err := s.get(cfAccounts, pk[:])
	if err != nil {
		return nil, err
	}
	return DecodeAccount(b)
}

// GetAccountKeyByAddress resolves the accounts-column-family key on file
// for an address (see Account.Key for why this isn't always literally the
// public key).
func (s *Store) GetAccountKeyByAddress(addr primitives.Address) ([]byte, error) {
	return s.get(cfAccountsByAddress, addr[:])
}

// GetAccountByAddress resolves the account owning addr, by first resolving
// its accounts-column-family key via the address index.
func (s *Store) GetAccountByAddress(addr primitives.Address) (*Account, error) {
	key, err := s.GetAccountKeyByAddress(addr)
	if err != nil {
		return nil, err
	}
	b, err := s.get(cfAccounts, key)
	if err != nil {
		return nil, err
	}
	return DecodeAccount(b)
}

// GetAccountTransactionHashes returns the transaction hashes recorded
// against a public key's accounts_transactions index.
func (s *Store) GetAccountTransactionHashes(pk primitives.PublicKey) ([]primitives.Hash, error) {
	b, err := s.get(cfAccountsTransactions, pk[:])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeHashList(b)
}

func decodeHashList(b []byte) ([]primitives.Hash, error) {
	if len(b)%primitives.HashSize != 0 {
		return nil, errors.New("store: corrupt hash list")
	}
	n := len(b) / primitives.HashSize
	out := make([]primitives.Hash, n)
	for i := 0; i < n; i++ {
		h, err := primitives.NewHashFromBytes(b[i*primitives.HashSize : (i+1)*primitives.HashSize])
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func encodeHashList(hashes []primitives.Hash) []byte {
	out := make([]byte, 0, len(hashes)*primitives.HashSize)
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}
