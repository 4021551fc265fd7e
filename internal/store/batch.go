// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
)

// Batch accumulates every write one block application produces so they can
// be committed in a single atomic call. Partial visibility is impossible: a
// Batch that is never committed has no effect at all.
type Batch struct {
	b *leveldb.Batch
}

// NewBatch returns an empty batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{b: new(leveldb.Batch)}
}

// PutAccount stages an account write, keyed by Account.Key(), plus the
// address->key index entry.
func (bt *Batch) PutAccount(a *Account) {
	key := a.Key()
	bt.b.Put(cfKey(cfAccounts, key), a.Encode())
	bt.b.Put(cfKey(cfAccountsByAddress, a.Address[:]), key)
}

// PutTransactionRaw stages the serialized transaction itself, keyed by hash.
func (bt *Batch) PutTransactionRaw(hash primitives.Hash, raw []byte) {
	bt.b.Put(cfKey(cfTransactions, hash[:]), raw)
}

// PutAccountTransactionIndex stages the full accounts_transactions index for
// one public key. Callers must pass the complete list (pre-existing hashes
// plus every hash this block adds for that sender), since this overwrites
// whatever was there before.
func (bt *Batch) PutAccountTransactionIndex(senderPublicKey primitives.PublicKey, hashes []primitives.Hash) {
	bt.b.Put(cfKey(cfAccountsTransactions, senderPublicKey[:]), encodeHashList(hashes))
}

// PutBlock stages the header, the block->tx-hash index, the height index,
// and (if advanceTip is true) the tip pointer.
func (bt *Batch) PutBlock(h *block.Header, txHashes []primitives.Hash, advanceTip bool) {
	headerHash := h.Hash()
	bt.b.Put(cfKey(cfBlockHeaders, headerHash[:]), h.Encode())
	bt.b.Put(cfKey(cfBlockHeadersByHeight, heightKey(h.Height)), headerHash[:])
	bt.b.Put(cfKey(cfBlockTransactions, headerHash[:]), encodeHashList(txHashes))
	if advanceTip {
		bt.b.Put(cfKey(cfInfo, infoLastHeader), headerHash[:])
	}
}

// Commit writes every staged operation atomically. On error, none of the
// batch's writes are visible: the tip pointer and every column family
// remain at their pre-call state.
func (s *Store) Commit(bt *Batch) error {
	return s.db.Write(bt.b, nil)
}
