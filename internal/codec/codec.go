// Package codec provides the deterministic hashing and address encoding
// primitives the rest of the node builds on: SHA-256 hashing, the
// RIPEMD-160(SHA-256(.)) public key hash, and the base58check address
// format. The underlying key-value stores treat all of this as opaque
// bytes; codec is where bytes get meaning.
package codec

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// ChecksumLength is the number of trailing checksum bytes in an address.
const ChecksumLength = 4

// AddressVersion is the single network version byte prepended to every
// public key hash before base58check encoding.
const AddressVersion = byte(0x00)

// ErrBadChecksum is returned by DecodeAddress when an address's checksum
// does not match its payload.
var ErrBadChecksum = fmt.Errorf("codec: address checksum mismatch")

// ErrBadLength is returned by DecodeAddress when a decoded address does
// not have the expected version+hash+checksum length.
var ErrBadLength = fmt.Errorf("codec: address has the wrong length")

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// SHA256 returns the raw 32-byte SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashPubKey returns RIPEMD160(SHA256(pubKey)), always 20 bytes. This is
// the identity that transaction outputs lock funds to.
func HashPubKey(pubKey []byte) []byte {
	shaHash := sha256.Sum256(pubKey)

	hasher := ripemd160.New()
	// ripemd160.Write never returns an error.
	_, _ = hasher.Write(shaHash[:])
	return hasher.Sum(nil)
}

// checksum returns the first ChecksumLength bytes of SHA256(SHA256(payload)).
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:ChecksumLength]
}

// EncodeAddress turns a 20-byte public key hash into a base58check address.
func EncodeAddress(pubKeyHash []byte) string {
	versioned := append([]byte{AddressVersion}, pubKeyHash...)
	full := append(versioned, checksum(versioned)...)
	return base58.Encode(full)
}

// DecodeAddress reverses EncodeAddress, validating the checksum, and
// returns the 20-byte public key hash.
func DecodeAddress(address string) ([]byte, error) {
	full, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("codec: decode address: %w", err)
	}
	if len(full) != 1+20+ChecksumLength {
		return nil, ErrBadLength
	}

	payload := full[:len(full)-ChecksumLength]
	wantChecksum := full[len(full)-ChecksumLength:]
	if !bytes.Equal(checksum(payload), wantChecksum) {
		return nil, ErrBadChecksum
	}

	return payload[1:], nil
}

// ValidateAddress reports whether address is a well-formed base58check
// address with a matching checksum.
func ValidateAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}
