package blockchain

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMineFindsHashMeetingTarget(t *testing.T) {
	nonce, hash, err := mine(context.Background(), "", []byte("merkle-root"), 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, TargetHexPrefix))
	assert.GreaterOrEqual(t, nonce, 0)
}

func TestMineIsCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := mine(ctx, "", []byte("merkle-root"), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidatePoWAcceptsFreshlyMinedBlock(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", "genesis")
	require.NoError(t, err)

	block, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	ok, err := validatePoW(block)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidatePoWRejectsTamperedNonce(t *testing.T) {
	coinbase, err := NewCoinbaseTx("an-address", "genesis")
	require.NoError(t, err)

	block, err := NewGenesisBlock(context.Background(), coinbase)
	require.NoError(t, err)

	block.Nonce++

	ok, err := validatePoW(block)
	require.NoError(t, err)
	assert.False(t, ok)
}
