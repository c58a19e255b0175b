package blockchain

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimba/ledger/internal/codec"
)

func newTestKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestNewCoinbaseTxIsCoinbase(t *testing.T) {
	tx, err := NewCoinbaseTx("an-address", "")
	require.NoError(t, err)

	assert.True(t, tx.IsCoinbase())
	assert.NotEmpty(t, tx.ID)
	assert.Len(t, tx.Vin, 1)
	assert.Equal(t, -1, tx.Vin[0].Vout)
}

func TestTransactionSerializeRoundTrip(t *testing.T) {
	tx, err := NewCoinbaseTx("an-address", "reward")
	require.NoError(t, err)

	data, err := tx.Serialize()
	require.NoError(t, err)

	got, err := DeserializeTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.Vout, got.Vout)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	pub, priv := newTestKeypair(t)
	pubKeyHash := codec.HashPubKey(pub)

	prevOut, err := NewTXOutput(10, codec.EncodeAddress(pubKeyHash))
	require.NoError(t, err)
	prevTx := Transaction{ID: "prev-tx-id", Vout: []TxOutput{*prevOut}}

	tx := &Transaction{
		Vin: []TxInput{{PrevTxID: prevTx.ID, Vout: 0, PubKey: pub}},
		Vout: []TxOutput{
			{Value: 10, PubKeyHash: pubKeyHash},
		},
	}
	require.NoError(t, tx.setID())

	prevTXs := map[string]Transaction{prevTx.ID: prevTx}
	require.NoError(t, tx.Sign(priv, prevTXs))

	ok, err := tx.Verify(prevTXs)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	pub, priv := newTestKeypair(t)
	pubKeyHash := codec.HashPubKey(pub)

	prevOut, err := NewTXOutput(10, codec.EncodeAddress(pubKeyHash))
	require.NoError(t, err)
	prevTx := Transaction{ID: "prev-tx-id", Vout: []TxOutput{*prevOut}}

	tx := &Transaction{
		Vin:  []TxInput{{PrevTxID: prevTx.ID, Vout: 0, PubKey: pub}},
		Vout: []TxOutput{{Value: 10, PubKeyHash: pubKeyHash}},
	}
	require.NoError(t, tx.setID())

	prevTXs := map[string]Transaction{prevTx.ID: prevTx}
	require.NoError(t, tx.Sign(priv, prevTXs))

	tx.Vin[0].Signature[0] ^= 0xFF

	ok, err := tx.Verify(prevTXs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyFailsOnMissingPreviousTransaction(t *testing.T) {
	pub, _ := newTestKeypair(t)
	tx := &Transaction{
		Vin:  []TxInput{{PrevTxID: "unknown", Vout: 0, PubKey: pub}},
		Vout: []TxOutput{{Value: 1, PubKeyHash: codec.HashPubKey(pub)}},
	}
	require.NoError(t, tx.setID())

	_, err := tx.Verify(map[string]Transaction{})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestCoinbaseAlwaysVerifies(t *testing.T) {
	tx, err := NewCoinbaseTx("an-address", "")
	require.NoError(t, err)

	ok, err := tx.Verify(nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
