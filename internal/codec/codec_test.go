package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256HexIsDeterministic(t *testing.T) {
	data := []byte("hello world")
	assert.Equal(t, SHA256Hex(data), SHA256Hex(data))
	assert.NotEqual(t, SHA256Hex(data), SHA256Hex([]byte("hello world!")))
	assert.Len(t, SHA256Hex(data), 64)
}

func TestHashPubKeyLength(t *testing.T) {
	hash := HashPubKey([]byte("a fake public key"))
	assert.Len(t, hash, 20)
}

func TestEncodeDecodeAddressRoundTrip(t *testing.T) {
	pubKeyHash := HashPubKey([]byte("some public key bytes"))
	address := EncodeAddress(pubKeyHash)

	decoded, err := DecodeAddress(address)
	require.NoError(t, err)
	assert.Equal(t, pubKeyHash, decoded)
	assert.True(t, ValidateAddress(address))
}

func TestDecodeAddressRejectsBadChecksum(t *testing.T) {
	pubKeyHash := HashPubKey([]byte("some public key bytes"))
	address := EncodeAddress(pubKeyHash)

	tampered := []byte(address)
	tampered[0]++
	_, err := DecodeAddress(string(tampered))
	assert.Error(t, err)
	assert.False(t, ValidateAddress(string(tampered)))
}

func TestValidateAddressRejectsGarbage(t *testing.T) {
	assert.False(t, ValidateAddress("not-a-real-address"))
	assert.False(t, ValidateAddress(""))
}

func TestEncodeFieldsOrderSensitive(t *testing.T) {
	a, err := EncodeFields("prev", []byte{1, 2, 3}, uint64(42), int64(7))
	require.NoError(t, err)

	b, err := EncodeFields("prev", []byte{1, 2, 3}, uint64(42), int64(8))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	c, err := EncodeFields("prev", []byte{1, 2, 3}, uint64(42), int64(7))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestEncodeFieldsRejectsUnsupportedType(t *testing.T) {
	_, err := EncodeFields(3.14)
	assert.Error(t, err)
}
