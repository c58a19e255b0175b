package blockchain

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/kilimba/ledger/internal/logging"
)

// GenesisData is the fixed coinbase message mined into every chain's
// first block.
const GenesisData = "The Times 03/Jan/2009 Chancellor on brink of second bailout for banks"

// tipKey is the chain store key holding the hex hash of the current tip.
const tipKey = "LAST"

// Chain is the persistent, append-only block store. It owns a badger
// handle dedicated to one node's chain namespace.
type Chain struct {
	db      *badger.DB
	tipHash string
	log     *logging.Logger
}

// CreateBlockchain initializes a brand-new chain at path, mining a
// genesis block whose coinbase pays address. It fails if a chain
// already exists at path.
func CreateBlockchain(ctx context.Context, path, address string, log *logging.Logger) (*Chain, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(tipKey))
		exists = err == nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: check existing chain: %v", ErrStorage, err)
	}
	if exists {
		return nil, fmt.Errorf("blockchain: chain already exists at %s", path)
	}

	coinbase, err := NewCoinbaseTx(address, GenesisData)
	if err != nil {
		return nil, err
	}
	genesis, err := NewGenesisBlock(ctx, coinbase)
	if err != nil {
		return nil, err
	}

	data, err := genesis.Serialize()
	if err != nil {
		return nil, err
	}

	err = db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(genesis.Hash), data); err != nil {
			return err
		}
		return txn.Set([]byte(tipKey), []byte(genesis.Hash))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persist genesis block: %v", ErrStorage, err)
	}

	log.Info("genesis block mined", "hash", genesis.Hash)
	return &Chain{db: db, tipHash: genesis.Hash, log: log}, nil
}

// OpenBlockchain opens an existing chain at path. It fails with
// ErrChainNotInitialized if no chain has been created there yet.
func OpenBlockchain(path string, log *logging.Logger) (*Chain, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var tip string
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tipKey))
		if err == badger.ErrKeyNotFound {
			return ErrChainNotInitialized
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		tip = string(val)
		return nil
	})
	if err != nil {
		_ = db.Close()
		if err == ErrChainNotInitialized {
			return nil, ErrChainNotInitialized
		}
		return nil, fmt.Errorf("%w: read chain tip: %v", ErrStorage, err)
	}

	return &Chain{db: db, tipHash: tip, log: log}, nil
}

// OpenChainForNode opens the chain store at path for a network node,
// tolerating the absence of a genesis block: a freshly bootstrapped
// node has not run createblockchain yet, and GetBestHeight's -1
// sentinel is exactly how the peer protocol detects that case.
func OpenChainForNode(path string, log *logging.Logger) (*Chain, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var tip string
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tipKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		tip = string(val)
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: read chain tip: %v", ErrStorage, err)
	}

	return &Chain{db: db, tipHash: tip, log: log}, nil
}

// Close releases the underlying badger handle.
func (c *Chain) Close() error {
	return c.db.Close()
}

// DB exposes the underlying badger handle of the chain store.
func (c *Chain) DB() *badger.DB {
	return c.db
}

// GetBestHeight returns the tip's height, or -1 if this chain has no
// genesis block yet (used as a peer-protocol sentinel).
func (c *Chain) GetBestHeight() (int, error) {
	if c.tipHash == "" {
		return -1, nil
	}
	tip, err := c.GetBlock(c.tipHash)
	if err != nil {
		return -1, err
	}
	return tip.Height, nil
}

// GetBlock looks up a single block by its hex hash.
func (c *Chain) GetBlock(hash string) (*Block, error) {
	var block *Block
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hash))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		block, err = DeserializeBlock(data)
		return err
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: block %q", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("%w: read block %q: %v", ErrStorage, hash, err)
	}
	return block, nil
}

// GetBlockHashes returns every block hash in tip-to-genesis order.
func (c *Chain) GetBlockHashes() ([]string, error) {
	if c.tipHash == "" {
		return nil, nil
	}

	var hashes []string
	it := c.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, block.Hash)
		if block.IsGenesis() {
			break
		}
	}
	return hashes, nil
}

// AddBlock inserts block if it is not already stored, and advances the
// tip if block's height exceeds the current tip's. Idempotent: adding
// an already-stored block is a no-op.
func (c *Chain) AddBlock(block *Block) error {
	var alreadyHave bool
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(block.Hash))
		alreadyHave = err == nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: check block %q: %v", ErrStorage, block.Hash, err)
	}
	if alreadyHave {
		return nil
	}

	data, err := block.Serialize()
	if err != nil {
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(block.Hash), data); err != nil {
			return err
		}

		tipItem, err := txn.Get([]byte(tipKey))
		if err == badger.ErrKeyNotFound {
			if err := txn.Set([]byte(tipKey), []byte(block.Hash)); err != nil {
				return err
			}
			c.tipHash = block.Hash
			return nil
		}
		if err != nil {
			return err
		}
		tipHashBytes, err := tipItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		tipData, err := txn.Get(tipHashBytes)
		if err != nil {
			return err
		}
		tipRaw, err := tipData.ValueCopy(nil)
		if err != nil {
			return err
		}
		tipBlock, err := DeserializeBlock(tipRaw)
		if err != nil {
			return err
		}

		if block.Height > tipBlock.Height {
			if err := txn.Set([]byte(tipKey), []byte(block.Hash)); err != nil {
				return err
			}
			c.tipHash = block.Hash
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: add block %q: %v", ErrStorage, block.Hash, err)
	}

	c.log.Info("block added", "hash", block.Hash, "height", block.Height)
	return nil
}

// MineBlock verifies every candidate transaction, mines a new block on
// top of the current tip containing them, and persists it as the new
// tip. It fails with ErrInvalidTransaction if any tx does not verify.
func (c *Chain) MineBlock(ctx context.Context, txs []*Transaction) (*Block, error) {
	for _, tx := range txs {
		ok, err := c.VerifyTransaction(tx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: transaction %s does not verify", ErrInvalidTransaction, tx.ID)
		}
	}

	tip, err := c.GetBlock(c.tipHash)
	if err != nil {
		return nil, err
	}

	block, err := NewBlock(ctx, txs, tip.Hash, tip.Height+1)
	if err != nil {
		return nil, err
	}

	data, err := block.Serialize()
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(block.Hash), data); err != nil {
			return err
		}
		return txn.Set([]byte(tipKey), []byte(block.Hash))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persist mined block: %v", ErrStorage, err)
	}

	c.tipHash = block.Hash
	c.log.Info("block mined", "hash", block.Hash, "height", block.Height, "txs", len(txs))
	return block, nil
}

// FindUTXO performs a single tip-to-genesis pass over the chain,
// returning every transaction output that is not consumed by a later
// (in chain time, meaning earlier in traversal order) input.
func (c *Chain) FindUTXO() (map[string]TxOutputs, error) {
	utxo := make(map[string]TxOutputs)
	if c.tipHash == "" {
		return utxo, nil
	}
	spent := make(map[string]map[int]bool)

	it := c.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions {
		Outputs:
			for outIdx, out := range tx.Vout {
				if spent[tx.ID][outIdx] {
					continue Outputs
				}
				entry := utxo[tx.ID]
				entry.Outputs = append(entry.Outputs, out)
				utxo[tx.ID] = entry
			}

			if !tx.IsCoinbase() {
				for _, in := range tx.Vin {
					if spent[in.PrevTxID] == nil {
						spent[in.PrevTxID] = make(map[int]bool)
					}
					spent[in.PrevTxID][in.Vout] = true
				}
			}
		}

		if block.IsGenesis() {
			break
		}
	}

	return utxo, nil
}

// FindTransaction searches the chain tip-to-genesis for a transaction
// by id. Linear search; acceptable at this scale.
func (c *Chain) FindTransaction(id string) (Transaction, error) {
	if c.tipHash == "" {
		return Transaction{}, fmt.Errorf("%w: transaction %q", ErrNotFound, id)
	}
	it := c.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return Transaction{}, err
		}
		for _, tx := range block.Transactions {
			if tx.ID == id {
				return *tx, nil
			}
		}
		if block.IsGenesis() {
			break
		}
	}
	return Transaction{}, fmt.Errorf("%w: transaction %q", ErrNotFound, id)
}

// prevTransactions collects, for every non-coinbase input of tx, the
// previous transaction it references.
func (c *Chain) prevTransactions(tx *Transaction) (map[string]Transaction, error) {
	prevTXs := make(map[string]Transaction)
	for _, in := range tx.Vin {
		if in.IsCoinbase() {
			continue
		}
		prev, err := c.FindTransaction(in.PrevTxID)
		if err != nil {
			return nil, err
		}
		prevTXs[prev.ID] = prev
	}
	return prevTXs, nil
}

// SignTransaction signs tx in place, resolving its referenced previous
// transactions from the chain.
func (c *Chain) SignTransaction(tx *Transaction, priv ed25519.PrivateKey) error {
	prevTXs, err := c.prevTransactions(tx)
	if err != nil {
		return err
	}
	return tx.Sign(priv, prevTXs)
}

// VerifyTransaction checks tx's signatures, resolving its referenced
// previous transactions from the chain.
func (c *Chain) VerifyTransaction(tx *Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}
	prevTXs, err := c.prevTransactions(tx)
	if err != nil {
		return false, err
	}
	return tx.Verify(prevTXs)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open store at %s: %v", ErrStorage, path, err)
	}
	return db, nil
}
