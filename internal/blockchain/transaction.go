package blockchain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kilimba/ledger/internal/codec"
)

// Subsidy is the fixed block reward paid to a coinbase output.
const Subsidy = 10

// Transaction is a single value transfer: a set of inputs spending
// prior outputs and a set of new outputs. ID is the hex SHA-256 digest
// of the transaction with ID cleared (see Hash).
type Transaction struct {
	ID  string
	Vin []TxInput
	Vout []TxOutput
}

// NewCoinbaseTx builds the reward transaction that starts a block. If
// data is empty it defaults to a message naming the recipient.
func NewCoinbaseTx(to, data string) (*Transaction, error) {
	if data == "" {
		data = fmt.Sprintf("Reward to '%s'", to)
	}

	out, err := NewTXOutput(Subsidy, to)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Vin: []TxInput{{
			PrevTxID:  "",
			Vout:      -1,
			Signature: nil,
			PubKey:    []byte(data),
		}},
		Vout: []TxOutput{*out},
	}
	if err := tx.setID(); err != nil {
		return nil, err
	}
	return tx, nil
}

// IsCoinbase reports whether tx is a coinbase transaction: exactly one
// synthetic input.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Vin) == 1 && tx.Vin[0].IsCoinbase()
}

// Serialize gob-encodes tx for storage or wire transport.
func (tx Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tx); err != nil {
		return nil, fmt.Errorf("%w: encode transaction: %v", ErrStorage, err)
	}
	return buf.Bytes(), nil
}

// DeserializeTransaction reverses Transaction.Serialize.
func DeserializeTransaction(data []byte) (Transaction, error) {
	var tx Transaction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tx); err != nil {
		return Transaction{}, fmt.Errorf("%w: decode transaction: %v", ErrStorage, err)
	}
	return tx, nil
}

// Hash returns the hex SHA-256 digest of tx with ID cleared. This is
// both the transaction's identity and, as UTF-8 bytes, the payload
// that gets signed (see Sign) — the wire format's signing domain is the
// hex string, not the raw digest bytes.
func (tx Transaction) Hash() (string, error) {
	cp := tx
	cp.ID = ""
	data, err := cp.Serialize()
	if err != nil {
		return "", err
	}
	return codec.SHA256Hex(data), nil
}

func (tx *Transaction) setID() error {
	id, err := tx.Hash()
	if err != nil {
		return err
	}
	tx.ID = id
	return nil
}

// trimmedCopy returns tx with every input's Signature and PubKey
// cleared — the canonical form inputs are signed/verified against.
func (tx Transaction) trimmedCopy() Transaction {
	vin := make([]TxInput, len(tx.Vin))
	for i, in := range tx.Vin {
		vin[i] = TxInput{PrevTxID: in.PrevTxID, Vout: in.Vout}
	}
	vout := make([]TxOutput, len(tx.Vout))
	copy(vout, tx.Vout)

	return Transaction{ID: tx.ID, Vin: vin, Vout: vout}
}

// Sign signs every non-coinbase input of tx with priv, given the
// previous transactions each input's PrevTxID refers to.
func (tx *Transaction) Sign(priv ed25519.PrivateKey, prevTXs map[string]Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}

	for _, in := range tx.Vin {
		prev, ok := prevTXs[in.PrevTxID]
		if !ok || prev.ID == "" {
			return fmt.Errorf("%w: no previous transaction %q", ErrInvalidReference, in.PrevTxID)
		}
	}

	txCopy := tx.trimmedCopy()

	for i, in := range txCopy.Vin {
		prev := prevTXs[in.PrevTxID]
		txCopy.Vin[i].Signature = nil
		txCopy.Vin[i].PubKey = prev.Vout[in.Vout].PubKeyHash

		digest, err := txCopy.Hash()
		if err != nil {
			return err
		}
		txCopy.ID = digest
		txCopy.Vin[i].PubKey = nil

		tx.Vin[i].Signature = ed25519.Sign(priv, []byte(digest))
	}

	return nil
}

// Verify checks every non-coinbase input's signature against the
// previous outputs it claims to spend. A coinbase transaction always
// verifies. A missing previous transaction is an error, not a false
// result — that distinguishes "can't tell" from "signature is bad".
func (tx Transaction) Verify(prevTXs map[string]Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	for _, in := range tx.Vin {
		prev, ok := prevTXs[in.PrevTxID]
		if !ok || prev.ID == "" {
			return false, fmt.Errorf("%w: no previous transaction %q", ErrInvalidReference, in.PrevTxID)
		}
	}

	txCopy := tx.trimmedCopy()

	for i, in := range tx.Vin {
		prev := prevTXs[in.PrevTxID]
		txCopy.Vin[i].Signature = nil
		txCopy.Vin[i].PubKey = prev.Vout[in.Vout].PubKeyHash

		digest, err := txCopy.Hash()
		if err != nil {
			return false, err
		}
		txCopy.ID = digest
		txCopy.Vin[i].PubKey = nil

		if !ed25519.Verify(ed25519.PublicKey(in.PubKey), []byte(digest), in.Signature) {
			return false, nil
		}
	}

	return true, nil
}

// String renders tx for printchain-style output.
func (tx Transaction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Transaction %s:\n", tx.ID)
	for i, in := range tx.Vin {
		fmt.Fprintf(&b, "     Input %d:\n", i)
		fmt.Fprintf(&b, "       TXID:      %s\n", in.PrevTxID)
		fmt.Fprintf(&b, "       Out:       %d\n", in.Vout)
		fmt.Fprintf(&b, "       Signature: %x\n", in.Signature)
		fmt.Fprintf(&b, "       PubKey:    %x\n", in.PubKey)
	}
	for i, out := range tx.Vout {
		fmt.Fprintf(&b, "     Output %d:\n", i)
		fmt.Fprintf(&b, "       Value:      %d\n", out.Value)
		fmt.Fprintf(&b, "       PubKeyHash: %x\n", out.PubKeyHash)
	}
	return b.String()
}

// idBytes decodes tx.ID (hex) into the raw 32-byte digest used as a
// Merkle tree leaf.
func (tx Transaction) idBytes() ([]byte, error) {
	raw, err := hex.DecodeString(tx.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction id %q is not hex: %v", ErrStorage, tx.ID, err)
	}
	return raw, nil
}
