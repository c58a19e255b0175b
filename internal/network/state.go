package network

import (
	"bytes"
	"io"
	"net"
	"sync"

	"github.com/kilimba/ledger/internal/blockchain"
	"github.com/kilimba/ledger/internal/logging"
)

// State is the single shared, mutex-guarded record every accept-loop
// and per-connection handler reads and mutates. The mutex is the only
// synchronization primitive: handlers hold it only for small
// sub-operations, never across network I/O or mining (spec's
// single-lock node-state model).
type State struct {
	mu sync.Mutex

	Chain *blockchain.Chain
	UTXO  *blockchain.UTXOIndex

	nodeAddress   string
	miningAddress string
	bootstrapPeer string

	mempool         map[string]*blockchain.Transaction
	blocksInTransit []string
	knownNodes      []string

	log *logging.Logger
}

// NewState builds a node's shared state. miningAddress is empty for a
// non-mining node.
func NewState(chain *blockchain.Chain, utxo *blockchain.UTXOIndex, nodeAddress, miningAddress, bootstrapPeer string, log *logging.Logger) *State {
	return &State{
		Chain:         chain,
		UTXO:          utxo,
		nodeAddress:   nodeAddress,
		miningAddress: miningAddress,
		bootstrapPeer: bootstrapPeer,
		mempool:       make(map[string]*blockchain.Transaction),
		knownNodes:    []string{bootstrapPeer},
		log:           log,
	}
}

// IsSeed reports whether this node's own address is the bootstrap peer.
func (s *State) IsSeed() bool {
	return s.nodeAddress == s.bootstrapPeer
}

func (s *State) addKnownNode(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.knownNodes {
		if n == addr {
			return
		}
	}
	s.knownNodes = append(s.knownNodes, addr)
}

func (s *State) dropKnownNode(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.knownNodes[:0:0]
	for _, n := range s.knownNodes {
		if n != addr {
			kept = append(kept, n)
		}
	}
	s.knownNodes = kept
}

func (s *State) peers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.knownNodes...)
}

func (s *State) mempoolHas(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mempool[txID]
	return ok
}

func (s *State) mempoolPut(tx *blockchain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mempool[tx.ID] = tx
}

func (s *State) mempoolGet(txID string) (*blockchain.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.mempool[txID]
	return tx, ok
}

func (s *State) mempoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mempool)
}

func (s *State) mempoolSnapshot() []*blockchain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]*blockchain.Transaction, 0, len(s.mempool))
	for _, tx := range s.mempool {
		txs = append(txs, tx)
	}
	return txs
}

func (s *State) mempoolDelete(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.mempool, id)
	}
}

func (s *State) setBlocksInTransit(hashes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocksInTransit = hashes
}

func (s *State) popBlockInTransit() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocksInTransit) == 0 {
		return "", false
	}
	next := s.blocksInTransit[0]
	s.blocksInTransit = s.blocksInTransit[1:]
	return next, true
}

func (s *State) blocksInTransitPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocksInTransit) > 0
}

// sendData opens one connection to addr, writes the whole message, and
// closes it. A dead peer is dropped from known nodes and the send is
// silently abandoned, matching the gossip protocol's liveness policy.
func (s *State) sendData(addr string, data []byte) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		s.log.Debug("peer unavailable, dropping", "addr", addr, "error", err)
		s.dropKnownNode(addr)
		return
	}
	defer conn.Close()

	if _, err := io.Copy(conn, bytes.NewReader(data)); err != nil {
		s.log.Warn("write to peer failed", "addr", addr, "error", err)
	}
}

func (s *State) sendVersion(addr string) {
	height, err := s.Chain.GetBestHeight()
	if err != nil {
		s.log.Error("send version: read best height", "error", err)
		return
	}
	payload, err := gobEncode(versionMsg{AddrFrom: s.nodeAddress, Version: ProtocolVersion, BestHeight: height})
	if err != nil {
		s.log.Error("send version: encode", "error", err)
		return
	}
	s.sendData(addr, frame("version", payload))
}

func (s *State) sendAddr(addr string) {
	list := append(s.peers(), s.nodeAddress)
	payload, err := gobEncode(addrMsg{AddrList: list})
	if err != nil {
		s.log.Error("send addr: encode", "error", err)
		return
	}
	s.sendData(addr, frame("addr", payload))
}

func (s *State) sendGetBlocks(addr string) {
	payload, err := gobEncode(getBlocksMsg{AddrFrom: s.nodeAddress})
	if err != nil {
		s.log.Error("send getblocks: encode", "error", err)
		return
	}
	s.sendData(addr, frame("getblocks", payload))
}

func (s *State) sendInv(addr, kind string, items []string) {
	payload, err := gobEncode(invMsg{AddrFrom: s.nodeAddress, Kind: kind, Items: items})
	if err != nil {
		s.log.Error("send inv: encode", "error", err)
		return
	}
	s.sendData(addr, frame("inv", payload))
}

func (s *State) sendGetData(addr, kind, id string) {
	payload, err := gobEncode(getDataMsg{AddrFrom: s.nodeAddress, Kind: kind, ID: id})
	if err != nil {
		s.log.Error("send getdata: encode", "error", err)
		return
	}
	s.sendData(addr, frame("getdata", payload))
}

func (s *State) sendBlock(addr string, b *blockchain.Block) {
	data, err := b.Serialize()
	if err != nil {
		s.log.Error("send block: serialize", "error", err)
		return
	}
	payload, err := gobEncode(blockMsg{AddrFrom: s.nodeAddress, Block: data})
	if err != nil {
		s.log.Error("send block: encode", "error", err)
		return
	}
	s.sendData(addr, frame("block", payload))
}

func (s *State) sendTx(addr string, tx *blockchain.Transaction) {
	data, err := tx.Serialize()
	if err != nil {
		s.log.Error("send tx: serialize", "error", err)
		return
	}
	payload, err := gobEncode(txMsg{AddrFrom: s.nodeAddress, Transaction: data})
	if err != nil {
		s.log.Error("send tx: encode", "error", err)
		return
	}
	s.sendData(addr, frame("tx", payload))
}

// broadcastGetBlocks asks every known node for its block inventory.
func (s *State) broadcastGetBlocks() {
	for _, addr := range s.peers() {
		s.sendGetBlocks(addr)
	}
}

