package blockchain

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"
)

// Block is one entry in the chain: a batch of transactions sealed by a
// proof-of-work nonce. Height counts from 0 at genesis.
type Block struct {
	Timestamp     uint64 // ms since Unix epoch
	Transactions  []*Transaction
	PrevBlockHash string // hex, empty for genesis
	Hash          string // hex
	Nonce         int
	Height        int
}

// NewBlock mines a new block over txs on top of prevHash at the given
// height. The search is cancellable via ctx so a supervising goroutine
// can abort it (shutdown, or a competing block winning the race).
func NewBlock(ctx context.Context, txs []*Transaction, prevHash string, height int) (*Block, error) {
	root, err := MerkleRoot(txs)
	if err != nil {
		return nil, err
	}

	timestamp := uint64(time.Now().UnixMilli())
	nonce, hash, err := mine(ctx, prevHash, root, timestamp)
	if err != nil {
		return nil, fmt.Errorf("blockchain: mine block: %w", err)
	}

	return &Block{
		Timestamp:     timestamp,
		Transactions:  txs,
		PrevBlockHash: prevHash,
		Hash:          hash,
		Nonce:         nonce,
		Height:        height,
	}, nil
}

// NewGenesisBlock mines the first block of a chain, containing only
// coinbase.
func NewGenesisBlock(ctx context.Context, coinbase *Transaction) (*Block, error) {
	return NewBlock(ctx, []*Transaction{coinbase}, "", 0)
}

// Validate reports whether b's stored hash is correct and meets the
// difficulty target. It does not check prevBlockHash linkage or
// transaction signatures — see the network package's handleBlock for
// the full acceptance check run on blocks received from peers.
func (b *Block) Validate() (bool, error) {
	return validatePoW(b)
}

// Serialize gob-encodes b for storage or wire transport.
func (b *Block) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("%w: encode block: %v", ErrStorage, err)
	}
	return buf.Bytes(), nil
}

// DeserializeBlock reverses Block.Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var b Block
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: decode block: %v", ErrStorage, err)
	}
	return &b, nil
}

// IsGenesis reports whether b is a chain's first block.
func (b *Block) IsGenesis() bool {
	return b.PrevBlockHash == ""
}
