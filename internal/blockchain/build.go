package blockchain

import (
	"encoding/hex"
	"fmt"

	"github.com/kilimba/ledger/internal/codec"
	"github.com/kilimba/ledger/internal/wallet"
)

// NewUTXOTransaction builds and signs a transaction paying amount from
// w to the address to, spending whatever unspent outputs of w's are
// needed from utxo. chain resolves the previous transactions each new
// input signs against.
func NewUTXOTransaction(w *wallet.Wallet, to string, amount int, utxo *UTXOIndex, chain *Chain) (*Transaction, error) {
	pubKeyHash := codec.HashPubKey(w.PublicKey)

	accumulated, validOutputs, err := utxo.FindSpendableOutputs(pubKeyHash, amount)
	if err != nil {
		return nil, err
	}
	if accumulated < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, accumulated, amount)
	}

	var inputs []TxInput
	for txID, outIdxs := range validOutputs {
		if _, err := hex.DecodeString(txID); err != nil {
			return nil, fmt.Errorf("%w: spendable output transaction id %q is not hex: %v", ErrStorage, txID, err)
		}
		for _, outIdx := range outIdxs {
			inputs = append(inputs, TxInput{
				PrevTxID: txID,
				Vout:     outIdx,
				PubKey:   w.PublicKey,
			})
		}
	}

	payTo, err := NewTXOutput(amount, to)
	if err != nil {
		return nil, err
	}
	outputs := []TxOutput{*payTo}

	if accumulated > amount {
		change, err := NewTXOutput(accumulated-amount, w.Address())
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, *change)
	}

	tx := &Transaction{Vin: inputs, Vout: outputs}
	if err := tx.setID(); err != nil {
		return nil, err
	}

	if err := chain.SignTransaction(tx, w.PrivateKey); err != nil {
		return nil, err
	}

	return tx, nil
}
