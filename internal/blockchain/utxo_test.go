package blockchain

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimba/ledger/internal/codec"
	"github.com/kilimba/ledger/internal/logging"
	"github.com/kilimba/ledger/internal/wallet"
)

// dumpUTXOStore reads every (txid -> outputs) entry directly out of
// u's backing store, bypassing the public query methods, so the store
// can be compared key-for-key against chain.FindUTXO().
func dumpUTXOStore(t *testing.T, u *UTXOIndex) map[string]TxOutputs {
	t.Helper()
	result := make(map[string]TxOutputs)

	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			outs, err := DeserializeOutputs(data)
			if err != nil {
				return err
			}
			result[key] = outs
		}
		return nil
	})
	require.NoError(t, err)
	return result
}

func assertReindexMatchesFindUTXO(t *testing.T, chain *Chain, utxo *UTXOIndex) {
	t.Helper()

	count, err := utxo.Reindex()
	require.NoError(t, err)

	want, err := chain.FindUTXO()
	require.NoError(t, err)
	assert.Equal(t, len(want), count)

	got := dumpUTXOStore(t, utxo)
	assert.Len(t, got, len(want))
	for txID, wantOuts := range want {
		gotOuts, ok := got[txID]
		require.True(t, ok, "missing utxo entry for %s", txID)
		assert.ElementsMatch(t, wantOuts.Outputs, gotOuts.Outputs)
	}
}

func TestReindexEqualsChainFindUTXOAfterGenesis(t *testing.T) {
	chain, _ := newTestChain(t)

	utxo, err := OpenUTXOIndex(t.TempDir(), chain, logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utxo.Close() })

	assertReindexMatchesFindUTXO(t, chain, utxo)

	count, err := utxo.CountTransactions()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the genesis coinbase is unspent so far")
}

func TestReindexEqualsChainFindUTXOWithSpentOutputs(t *testing.T) {
	chain, w := newTestChain(t)

	genesis, err := chain.GetBlock(chain.tipHash)
	require.NoError(t, err)
	genesisTxID := genesis.Transactions[0].ID

	utxo, err := OpenUTXOIndex(t.TempDir(), chain, logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utxo.Close() })
	_, err = utxo.Reindex()
	require.NoError(t, err)

	other, err := wallet.NewWallet()
	require.NoError(t, err)

	// Spend part of the genesis coinbase, leaving a change output, and
	// reward a fresh coinbase in the same block.
	tx, err := NewUTXOTransaction(w, other.Address(), 4, utxo, chain)
	require.NoError(t, err)
	reward, err := NewCoinbaseTx(w.Address(), "block-2-reward")
	require.NoError(t, err)

	block, err := chain.MineBlock(context.Background(), []*Transaction{reward, tx})
	require.NoError(t, err)
	require.NoError(t, utxo.Update(block))

	want, err := chain.FindUTXO()
	require.NoError(t, err)

	// The genesis coinbase's single output is now fully spent, so its
	// entry must be gone entirely rather than zeroed out.
	_, stillPresent := want[genesisTxID]
	assert.False(t, stillPresent, "fully spent transaction must not appear in FindUTXO")
	assert.Len(t, want, 2, "one entry for the reward coinbase, one for the payment tx's outputs")

	assertReindexMatchesFindUTXO(t, chain, utxo)

	// Reindexing again must be stable (spec's reindex();reindex() law).
	countBefore, err := utxo.CountTransactions()
	require.NoError(t, err)
	_, err = utxo.Reindex()
	require.NoError(t, err)
	countAfter, err := utxo.CountTransactions()
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)
}

func TestFindSpendableOutputsAccumulatesUpToAmount(t *testing.T) {
	chain, w := newTestChain(t)

	utxo, err := OpenUTXOIndex(t.TempDir(), chain, logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utxo.Close() })
	_, err = utxo.Reindex()
	require.NoError(t, err)

	pubKeyHash := codec.HashPubKey(w.PublicKey)

	accumulated, refs, err := utxo.FindSpendableOutputs(pubKeyHash, 6)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accumulated, 6)
	assert.NotEmpty(t, refs)

	_, _, err = utxo.FindSpendableOutputs(pubKeyHash, Subsidy+1)
	require.NoError(t, err)
}
