package blockchain

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/kilimba/ledger/internal/codec"
)

// TxInput references an output of a previous transaction that this
// transaction spends. A coinbase input has an empty PrevTxID and
// Vout == -1; its PubKey carries arbitrary coinbase data instead of a
// real public key.
type TxInput struct {
	PrevTxID  string // hex transaction id, empty for coinbase
	Vout      int    // index into the previous transaction's Vout, -1 for coinbase
	Signature []byte
	PubKey    []byte
}

// IsCoinbase reports whether in is the synthetic input of a coinbase
// transaction.
func (in TxInput) IsCoinbase() bool {
	return in.PrevTxID == "" && in.Vout == -1
}

// UsesKey reports whether in was signed with the public key hashing to
// pubKeyHash.
func (in TxInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(codec.HashPubKey(in.PubKey), pubKeyHash)
}

// TxOutput is a single indivisible allocation of value, locked to
// whoever can prove ownership of the key hashing to PubKeyHash.
type TxOutput struct {
	Value      int
	PubKeyHash []byte
}

// NewTXOutput builds an output paying amount to address, locking it to
// that address's public key hash.
func NewTXOutput(amount int, address string) (*TxOutput, error) {
	pubKeyHash, err := codec.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("blockchain: new output for %q: %w", address, err)
	}
	return &TxOutput{Value: amount, PubKeyHash: pubKeyHash}, nil
}

// IsLockedWithKey reports whether out can be spent by whoever owns the
// key hashing to pubKeyHash.
func (out TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// TxOutputs is the value stored in the UTXO index under a transaction
// id: every output of that transaction still unspent.
type TxOutputs struct {
	Outputs []TxOutput
}

// Serialize gob-encodes outs for storage in the UTXO index.
func (outs TxOutputs) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(outs); err != nil {
		return nil, fmt.Errorf("%w: encode outputs: %v", ErrStorage, err)
	}
	return buf.Bytes(), nil
}

// DeserializeOutputs reverses TxOutputs.Serialize.
func DeserializeOutputs(data []byte) (TxOutputs, error) {
	var outs TxOutputs
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&outs); err != nil {
		return TxOutputs{}, fmt.Errorf("%w: decode outputs: %v", ErrStorage, err)
	}
	return outs, nil
}
