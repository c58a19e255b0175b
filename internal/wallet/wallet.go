// Package wallet manages local keypairs: generation, address
// derivation, and persistence in a dedicated badger namespace.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/kilimba/ledger/internal/codec"
)

// Wallet is one Ed25519 keypair and the address it derives to.
type Wallet struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// NewWallet generates a fresh keypair from a cryptographically secure
// random seed.
func NewWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate keypair: %w", err)
	}
	return &Wallet{PrivateKey: priv, PublicKey: pub}, nil
}

// Address returns w's base58check-encoded address, derived from
// hash_pub_key(PublicKey).
func (w *Wallet) Address() string {
	return codec.EncodeAddress(codec.HashPubKey(w.PublicKey))
}
