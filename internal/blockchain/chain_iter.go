package blockchain

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Iterator walks a Chain from its tip back to genesis, following each
// block's PrevBlockHash.
type Iterator struct {
	currentHash string
	db          *badger.DB
}

// Iterator returns a fresh tip-to-genesis iterator over c.
func (c *Chain) Iterator() *Iterator {
	return &Iterator{currentHash: c.tipHash, db: c.db}
}

// Next returns the current block and advances towards genesis. Callers
// stop when the returned block's PrevBlockHash is empty.
func (it *Iterator) Next() (*Block, error) {
	var block *Block

	err := it.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(it.currentHash))
		if err != nil {
			return fmt.Errorf("%w: read block %q: %v", ErrStorage, it.currentHash, err)
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("%w: read block %q: %v", ErrStorage, it.currentHash, err)
		}
		block, err = DeserializeBlock(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	it.currentHash = block.PrevBlockHash
	return block, nil
}
