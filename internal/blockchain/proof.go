package blockchain

import (
	"context"
	"strings"

	"github.com/kilimba/ledger/internal/codec"
)

// TargetHexPrefix is the literal difficulty target: a valid block's
// hash must begin with these four ASCII hex characters. This is a
// string comparison, not a numeric one — a fixed 16-bit difficulty
// baked in at compile time, deliberately not a big.Int threshold.
const TargetHexPrefix = "0000"

// powPreimage builds the deterministic bytes a block's proof-of-work
// hash is computed over: (prevHash, merkleRoot, timestamp, target
// length, nonce).
func powPreimage(prevHash string, merkleRoot []byte, timestamp uint64, nonce int) ([]byte, error) {
	return codec.EncodeFields(prevHash, merkleRoot, timestamp, int64(len(TargetHexPrefix)), int64(nonce))
}

// mine searches for a nonce whose resulting hash has TargetHexPrefix as
// a prefix. It is cancellable via ctx so a supervising task can abort
// an indefinite CPU-bound search (e.g. on shutdown or a competing block
// arriving first).
func mine(ctx context.Context, prevHash string, merkleRoot []byte, timestamp uint64) (nonce int, hash string, err error) {
	for nonce = 0; ; nonce++ {
		select {
		case <-ctx.Done():
			return 0, "", ctx.Err()
		default:
		}

		data, err := powPreimage(prevHash, merkleRoot, timestamp, nonce)
		if err != nil {
			return 0, "", err
		}
		candidate := codec.SHA256Hex(data)
		if strings.HasPrefix(candidate, TargetHexPrefix) {
			return nonce, candidate, nil
		}
	}
}

// validatePoW recomputes a block's hash from its stored fields and
// checks it matches the stored hash and meets the difficulty target.
func validatePoW(b *Block) (bool, error) {
	root, err := MerkleRoot(b.Transactions)
	if err != nil {
		return false, err
	}
	data, err := powPreimage(b.PrevBlockHash, root, b.Timestamp, b.Nonce)
	if err != nil {
		return false, err
	}
	recomputed := codec.SHA256Hex(data)
	return recomputed == b.Hash && strings.HasPrefix(b.Hash, TargetHexPrefix), nil
}
