package blockchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimba/ledger/internal/logging"
	"github.com/kilimba/ledger/internal/wallet"
)

// newTestChain creates a fresh chain store in a temp directory with a
// mined genesis block paying a freshly generated wallet.
func newTestChain(t *testing.T) (*Chain, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.NewWallet()
	require.NoError(t, err)

	chain, err := CreateBlockchain(context.Background(), t.TempDir(), w.Address(), logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = chain.Close() })

	return chain, w
}

func TestAddBlockIsIdempotent(t *testing.T) {
	chain, w := newTestChain(t)

	genesis, err := chain.GetBlock(chain.tipHash)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(w.Address(), "duplicate-block-test")
	require.NoError(t, err)
	block, err := NewBlock(context.Background(), []*Transaction{coinbase}, genesis.Hash, genesis.Height+1)
	require.NoError(t, err)

	require.NoError(t, chain.AddBlock(block))
	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	assert.Equal(t, 1, height)

	hashes, err := chain.GetBlockHashes()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)

	// Applying the same block again must be a no-op: same tip, same
	// stored hash set.
	require.NoError(t, chain.AddBlock(block))

	height, err = chain.GetBestHeight()
	require.NoError(t, err)
	assert.Equal(t, 1, height)

	hashes, err = chain.GetBlockHashes()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
}

func TestAddBlockDoesNotRewindTipOnLowerHeight(t *testing.T) {
	chain, w := newTestChain(t)

	genesis, err := chain.GetBlock(chain.tipHash)
	require.NoError(t, err)

	tallCoinbase, err := NewCoinbaseTx(w.Address(), "tall-block")
	require.NoError(t, err)
	tall, err := NewBlock(context.Background(), []*Transaction{tallCoinbase}, genesis.Hash, genesis.Height+5)
	require.NoError(t, err)
	require.NoError(t, chain.AddBlock(tall))

	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	assert.Equal(t, 5, height)

	shortCoinbase, err := NewCoinbaseTx(w.Address(), "short-block")
	require.NoError(t, err)
	short, err := NewBlock(context.Background(), []*Transaction{shortCoinbase}, genesis.Hash, genesis.Height+1)
	require.NoError(t, err)
	require.NoError(t, chain.AddBlock(short))

	// The lower-height block is stored (AddBlock never rejects a block
	// outright) but must not become the tip.
	height, err = chain.GetBestHeight()
	require.NoError(t, err)
	assert.Equal(t, 5, height, "tip must not rewind to a lower-height block")

	stored, err := chain.GetBlock(short.Hash)
	require.NoError(t, err)
	assert.Equal(t, short.Hash, stored.Hash)
}

func TestMineBlockAbortsOnInvalidTransaction(t *testing.T) {
	chain, w := newTestChain(t)

	utxo, err := OpenUTXOIndex(t.TempDir(), chain, logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = utxo.Close() })
	_, err = utxo.Reindex()
	require.NoError(t, err)

	other, err := wallet.NewWallet()
	require.NoError(t, err)

	tx, err := NewUTXOTransaction(w, other.Address(), Subsidy, utxo, chain)
	require.NoError(t, err)

	// Corrupt the signature so Verify fails.
	tx.Vin[0].Signature[0] ^= 0xFF

	_, err = chain.MineBlock(context.Background(), []*Transaction{tx})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	assert.Equal(t, 0, height, "tip must stay at genesis when mining aborts")
}

func TestFindTransactionLocatesStoredTransaction(t *testing.T) {
	chain, _ := newTestChain(t)

	genesis, err := chain.GetBlock(chain.tipHash)
	require.NoError(t, err)
	coinbaseID := genesis.Transactions[0].ID

	found, err := chain.FindTransaction(coinbaseID)
	require.NoError(t, err)
	assert.Equal(t, coinbaseID, found.ID)

	_, err = chain.FindTransaction("not-a-real-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
