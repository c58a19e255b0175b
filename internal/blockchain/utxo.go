package blockchain

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/kilimba/ledger/internal/logging"
)

// UTXOIndex is the derived cache of unspent outputs keyed by
// transaction id. It is never authoritative; Reindex always wins over
// any incremental drift from Update.
type UTXOIndex struct {
	db    *badger.DB
	chain *Chain
	log   *logging.Logger
}

// OpenUTXOIndex opens (creating if absent) the UTXO store at path,
// bound to chain for Reindex.
func OpenUTXOIndex(path string, chain *Chain, log *logging.Logger) (*UTXOIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &UTXOIndex{db: db, chain: chain, log: log}, nil
}

// Close releases the underlying badger handle.
func (u *UTXOIndex) Close() error {
	return u.db.Close()
}

// Reindex rebuilds the UTXO store from scratch by recomputing
// chain.FindUTXO(). Safe to call at any time; the recommended recovery
// from any suspected drift.
func (u *UTXOIndex) Reindex() (int, error) {
	if err := u.db.DropAll(); err != nil {
		return 0, fmt.Errorf("%w: reindex: clear utxo store: %v", ErrStorage, err)
	}

	utxo, err := u.chain.FindUTXO()
	if err != nil {
		return 0, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		for txID, outs := range utxo {
			data, err := outs.Serialize()
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(txID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: reindex: write utxo store: %v", ErrStorage, err)
	}

	u.log.Info("utxo index reindexed", "transactions", len(utxo))
	return len(utxo), nil
}

// Update incrementally applies block to the index: consumed outputs
// are removed (or their owning entry deleted if it becomes empty), and
// each transaction's fresh outputs are written. Not transactional
// across keys — Reindex is the recovery path if interrupted.
func (u *UTXOIndex) Update(block *Block) error {
	return u.db.Update(func(txn *badger.Txn) error {
		for _, tx := range block.Transactions {
			if !tx.IsCoinbase() {
				for _, in := range tx.Vin {
					item, err := txn.Get([]byte(in.PrevTxID))
					if err != nil {
						return fmt.Errorf("%w: update: missing utxo entry %q: %v", ErrStorage, in.PrevTxID, err)
					}
					data, err := item.ValueCopy(nil)
					if err != nil {
						return err
					}
					outs, err := DeserializeOutputs(data)
					if err != nil {
						return err
					}

					var remaining TxOutputs
					for j, out := range outs.Outputs {
						if j != in.Vout {
							remaining.Outputs = append(remaining.Outputs, out)
						}
					}

					if len(remaining.Outputs) == 0 {
						if err := txn.Delete([]byte(in.PrevTxID)); err != nil {
							return err
						}
					} else {
						data, err := remaining.Serialize()
						if err != nil {
							return err
						}
						if err := txn.Set([]byte(in.PrevTxID), data); err != nil {
							return err
						}
					}
				}
			}

			fresh := TxOutputs{Outputs: tx.Vout}
			data, err := fresh.Serialize()
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(tx.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindSpendableOutputs accumulates outputs locked to pubKeyHash until
// amount is reached, returning the total accumulated and the set of
// (txid, vout) references that make it up.
func (u *UTXOIndex) FindSpendableOutputs(pubKeyHash []byte, amount int) (int, map[string][]int, error) {
	accumulated := 0
	unspent := make(map[string][]int)

	err := u.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			txID := string(item.KeyCopy(nil))

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			outs, err := DeserializeOutputs(data)
			if err != nil {
				return err
			}

			for idx, out := range outs.Outputs {
				if out.IsLockedWithKey(pubKeyHash) && accumulated < amount {
					accumulated += out.Value
					unspent[txID] = append(unspent[txID], idx)
				}
			}
			if accumulated >= amount {
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("%w: find spendable outputs: %v", ErrStorage, err)
	}

	return accumulated, unspent, nil
}

// FindUTXO returns every output in the index locked to pubKeyHash.
func (u *UTXOIndex) FindUTXO(pubKeyHash []byte) ([]TxOutput, error) {
	var result []TxOutput

	err := u.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			outs, err := DeserializeOutputs(data)
			if err != nil {
				return err
			}
			for _, out := range outs.Outputs {
				if out.IsLockedWithKey(pubKeyHash) {
					result = append(result, out)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: find utxo: %v", ErrStorage, err)
	}

	return result, nil
}

// CountTransactions returns the number of keys (distinct transaction
// ids) currently tracked in the index.
func (u *UTXOIndex) CountTransactions() (int, error) {
	count := 0
	err := u.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count transactions: %v", ErrStorage, err)
	}
	return count, nil
}
