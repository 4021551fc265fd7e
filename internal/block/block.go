// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"github.com/gem-network/gem/internal/merkle"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/internal/wire"
)

// Block is a header plus its ordered transactions.
type Block struct {
	Header       *Header
	Transactions []*transaction.Transaction
}

// TxHashes returns the ordered transaction hashes, the input to the merkle
// root.
func (b *Block) TxHashes() []primitives.Hash {
	out := make([]primitives.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		out[i] = tx.Hash()
	}
	return out
}

// MerkleRoot computes the merkle root over the block's transactions.
func (b *Block) MerkleRoot() primitives.Hash {
	return merkle.Root(b.TxHashes())
}

// Encode serializes the full block: the header, then each transaction in
// order.
func (b *Block) Encode() []byte {
	w := wire.NewWriter(256 + 256*len(b.Transactions))
	headerBytes := b.Header.Encode()
	w.PutVarBytes(headerBytes)
	w.PutUint64LE(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		w.PutVarBytes(tx.Encode())
	}
	return w.Bytes()
}

// Decode parses the wire form produced by Encode.
func Decode(b []byte) (*Block, error) {
	r := wire.NewReader(b)

	headerBytes, err := r.VarBytes()
	if err != nil {
		return nil, err
	}
	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	count, err := r.Uint64LE()
	if err != nil {
		return nil, err
	}

	txs := make([]*transaction.Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		txBytes, err := r.VarBytes()
		if err != nil {
			return nil, err
		}
		tx, err := transaction.Decode(txBytes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return &Block{Header: header, Transactions: txs}, nil
}
