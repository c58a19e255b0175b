// Package network implements the gossip protocol between ledger nodes:
// one-shot TCP connections carrying a 12-byte command prefix followed
// by a gob-encoded payload, and the shared State the accept loop
// and per-connection handlers mutate under a single mutex.
package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Protocol version and wire framing width (spec §6 constants). The
// seed/bootstrap peer address is configurable per node, not hard-coded
// (see Config.BootstrapPeer); DefaultBootstrapPeer is only the
// fallback a bare config.Load defaults to.
const (
	ProtocolVersion      = 1
	CommandLength        = 12
	DefaultBootstrapPeer = "localhost:3000"
)

// versionMsg is the handshake payload.
type versionMsg struct {
	AddrFrom   string
	Version    int
	BestHeight int
}

// addrMsg advertises known peer addresses.
type addrMsg struct {
	AddrList []string
}

// getBlocksMsg requests the sender's full block hash inventory.
type getBlocksMsg struct {
	AddrFrom string
}

// invMsg advertises available blocks or transactions by id.
type invMsg struct {
	AddrFrom string
	Kind     string // "block" or "tx"
	Items    []string
}

// getDataMsg requests a single block or transaction by id.
type getDataMsg struct {
	AddrFrom string
	Kind     string
	ID       string
}

// blockMsg carries one serialized block.
type blockMsg struct {
	AddrFrom string
	Block    []byte
}

// txMsg carries one serialized transaction.
type txMsg struct {
	AddrFrom string
	Transaction []byte
}

// cmdToBytes renders cmd as a NUL-padded 12-byte command prefix.
func cmdToBytes(cmd string) []byte {
	var b [CommandLength]byte
	copy(b[:], cmd)
	return b[:]
}

// cmdFromBytes strips NUL padding from a 12-byte command prefix.
func cmdFromBytes(raw []byte) string {
	var cmd []byte
	for _, b := range raw {
		if b != 0 {
			cmd = append(cmd, b)
		}
	}
	return string(cmd)
}

// gobEncode serializes any wire payload. Wire messages use gob, same
// as block/transaction storage — one codec end to end.
func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("network: encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrProtocol, err)
	}
	return nil
}

func frame(cmd string, payload []byte) []byte {
	return append(cmdToBytes(cmd), payload...)
}
