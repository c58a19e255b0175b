package network

import "errors"

var (
	// ErrProtocol covers an unknown command or an undecodable payload.
	ErrProtocol = errors.New("network: protocol error")
	// ErrNetwork covers connect/read/write failures against a peer.
	ErrNetwork = errors.New("network: connection error")
)
