package wallet

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrStorage wraps persistent-store I/O or decode failures.
var ErrStorage = errors.New("wallet: storage error")

// KeyStore is the wallet namespace: a badger-backed keyring mapping
// address to Wallet, mirroring the chain and UTXO stores' shape rather
// than a single flat file.
type KeyStore struct {
	db      *badger.DB
	wallets map[string]*Wallet
}

// Open opens (creating if absent) the wallet store at path and loads
// every wallet it currently holds into memory.
func Open(path string) (*KeyStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open store at %s: %v", ErrStorage, path, err)
	}

	ks := &KeyStore{db: db, wallets: make(map[string]*Wallet)}
	if err := ks.Load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ks, nil
}

// Close releases the underlying badger handle.
func (ks *KeyStore) Close() error {
	return ks.db.Close()
}

// CreateWallet generates a fresh wallet, holds it in memory under its
// address, and returns the address. Callers must call SaveAll to
// persist it.
func (ks *KeyStore) CreateWallet() (string, error) {
	w, err := NewWallet()
	if err != nil {
		return "", err
	}
	address := w.Address()
	ks.wallets[address] = w
	return address, nil
}

// SaveAll serializes and writes every in-memory wallet to the store,
// then flushes.
func (ks *KeyStore) SaveAll() error {
	err := ks.db.Update(func(txn *badger.Txn) error {
		for address, w := range ks.wallets {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(w); err != nil {
				return fmt.Errorf("%w: encode wallet %s: %v", ErrStorage, address, err)
			}
			if err := txn.Set([]byte(address), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save wallets: %v", ErrStorage, err)
	}
	return ks.db.Sync()
}

// Load replaces the in-memory set of wallets with every (address,
// wallet) pair currently in the store.
func (ks *KeyStore) Load() error {
	loaded := make(map[string]*Wallet)

	err := ks.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			address := string(item.KeyCopy(nil))

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var w Wallet
			if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
				return fmt.Errorf("%w: decode wallet %s: %v", ErrStorage, address, err)
			}
			loaded[address] = &w
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: load wallets: %v", ErrStorage, err)
	}

	ks.wallets = loaded
	return nil
}

// GetWallet returns the wallet stored under address, if any.
func (ks *KeyStore) GetWallet(address string) (*Wallet, bool) {
	w, ok := ks.wallets[address]
	return w, ok
}

// GetAllAddresses returns every address currently known to ks.
func (ks *KeyStore) GetAllAddresses() []string {
	addresses := make([]string, 0, len(ks.wallets))
	for address := range ks.wallets {
		addresses = append(addresses, address)
	}
	return addresses
}
