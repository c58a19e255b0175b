package blockchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenesisBlockIsGenesis(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", GenesisData)
	require.NoError(t, err)

	block, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	assert.True(t, block.IsGenesis())
	assert.Equal(t, 0, block.Height)
	assert.Empty(t, block.PrevBlockHash)
	assert.NotEmpty(t, block.Hash)
}

func TestNewBlockLinksToParent(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", GenesisData)
	require.NoError(t, err)
	genesis, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	next, err := NewBlock(context.Background(), []*Transaction{coinbase}, genesis.Hash, genesis.Height+1)
	require.NoError(t, err)

	assert.False(t, next.IsGenesis())
	assert.Equal(t, genesis.Hash, next.PrevBlockHash)
	assert.Equal(t, 1, next.Height)
}

func TestBlockSerializeRoundTrip(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", GenesisData)
	require.NoError(t, err)
	block, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	data, err := block.Serialize()
	require.NoError(t, err)

	got, err := DeserializeBlock(data)
	require.NoError(t, err)
	assert.Equal(t, block.Hash, got.Hash)
	assert.Equal(t, block.Nonce, got.Nonce)
	assert.Len(t, got.Transactions, 1)
}

func TestBlockValidateAcceptsItsOwnMinedBlock(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", GenesisData)
	require.NoError(t, err)
	block, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	ok, err := block.Validate()
	require.NoError(t, err)
	assert.True(t, ok)
}
