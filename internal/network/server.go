package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/vrecan/death/v3"

	"github.com/kilimba/ledger/internal/blockchain"
	"github.com/kilimba/ledger/internal/logging"
)

// Server owns the listener and drives the accept loop over a shared
// State.
type Server struct {
	state    *State
	listener net.Listener
	log      *logging.Logger
}

// StartServer binds nodeAddress, starts the accept loop in the
// background, and runs the startup handshake. It blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives, then closes chain and utxo.
// Accept errors are logged and do not end the loop. miningAddress is
// empty for a non-mining node.
func StartServer(ctx context.Context, chain *blockchain.Chain, utxo *blockchain.UTXOIndex, nodeAddress, miningAddress, bootstrapPeer string, log *logging.Logger) error {
	ln, err := net.Listen("tcp", nodeAddress)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", ErrNetwork, nodeAddress, err)
	}

	state := NewState(chain, utxo, nodeAddress, miningAddress, bootstrapPeer, log)
	srv := &Server{state: state, listener: ln, log: log}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	go func() {
		watcher.WaitForDeathWithFunc(func() {
			cancel()
			_ = ln.Close()
		})
	}()

	go srv.acceptLoop(ctx)

	time.Sleep(time.Second)
	srv.handshake()

	<-ctx.Done()
	_ = chain.Close()
	_ = utxo.Close()
	return nil
}

// handshake implements the spec's startup rule: a node with no local
// chain asks every known peer for blocks; a node that already has one
// announces its version to the seed.
func (s *Server) handshake() {
	height, err := s.state.Chain.GetBestHeight()
	if err != nil {
		s.log.Error("handshake: read best height", "error", err)
		return
	}
	if height == -1 {
		s.state.broadcastGetBlocks()
	} else {
		s.state.sendVersion(s.state.bootstrapPeer)
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	raw, err := io.ReadAll(conn)
	if err != nil {
		s.log.Warn("read from peer failed", "error", err)
		return
	}

	s.state.dispatch(ctx, raw)
}
