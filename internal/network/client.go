package network

import (
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/kilimba/ledger/internal/blockchain"
)

// SendTxToSeed forwards tx to bootstrapPeer on behalf of fromAddress,
// for CLI-driven sends that aren't running their own node process. It
// opens one connection, writes the tx frame, and closes — the same
// one-shot convention the node's own handlers use.
func SendTxToSeed(bootstrapPeer, fromAddress string, tx *blockchain.Transaction) error {
	data, err := tx.Serialize()
	if err != nil {
		return err
	}
	payload, err := gobEncode(txMsg{AddrFrom: fromAddress, Transaction: data})
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", bootstrapPeer)
	if err != nil {
		return fmt.Errorf("%w: dial seed %s: %v", ErrNetwork, bootstrapPeer, err)
	}
	defer conn.Close()

	if _, err := io.Copy(conn, bytes.NewReader(frame("tx", payload))); err != nil {
		return fmt.Errorf("%w: write to seed %s: %v", ErrNetwork, bootstrapPeer, err)
	}
	return nil
}
