package network

import (
	"context"

	"github.com/kilimba/ledger/internal/blockchain"
)

// dispatch routes a received frame to its handler by command name.
// Unknown commands are logged and dropped; decode errors are reported,
// never fatal — one malformed peer never takes the node down.
func (s *State) dispatch(ctx context.Context, raw []byte) {
	if len(raw) < CommandLength {
		s.log.Warn("short message dropped", "bytes", len(raw))
		return
	}

	cmd := cmdFromBytes(raw[:CommandLength])
	payload := raw[CommandLength:]

	var err error
	switch cmd {
	case "version":
		err = s.handleVersion(payload)
	case "addr":
		err = s.handleAddr(payload)
	case "getblocks":
		err = s.handleGetBlocks(payload)
	case "inv":
		err = s.handleInv(payload)
	case "getdata":
		err = s.handleGetData(payload)
	case "block":
		err = s.handleBlock(payload)
	case "tx":
		err = s.handleTx(ctx, payload)
	default:
		s.log.Warn("unknown command dropped", "command", cmd)
		return
	}
	if err != nil {
		s.log.Warn("message handling failed", "command", cmd, "error", err)
	}
}

func (s *State) handleVersion(payload []byte) error {
	var v versionMsg
	if err := gobDecode(payload, &v); err != nil {
		return err
	}

	local, err := s.Chain.GetBestHeight()
	if err != nil {
		return err
	}

	if v.BestHeight > local {
		s.sendGetBlocks(v.AddrFrom)
	} else if v.BestHeight < local {
		s.sendVersion(v.AddrFrom)
	}
	s.sendAddr(v.AddrFrom)
	s.addKnownNode(v.AddrFrom)
	return nil
}

func (s *State) handleAddr(payload []byte) error {
	var a addrMsg
	if err := gobDecode(payload, &a); err != nil {
		return err
	}
	for _, addr := range a.AddrList {
		s.addKnownNode(addr)
	}
	return nil
}

func (s *State) handleGetBlocks(payload []byte) error {
	var g getBlocksMsg
	if err := gobDecode(payload, &g); err != nil {
		return err
	}
	hashes, err := s.Chain.GetBlockHashes()
	if err != nil {
		return err
	}
	s.sendInv(g.AddrFrom, "block", hashes)
	return nil
}

func (s *State) handleInv(payload []byte) error {
	var inv invMsg
	if err := gobDecode(payload, &inv); err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return nil
	}

	switch inv.Kind {
	case "block":
		s.setBlocksInTransit(inv.Items[1:])
		s.sendGetData(inv.AddrFrom, "block", inv.Items[0])
	case "tx":
		txID := inv.Items[0]
		if !s.mempoolHas(txID) {
			s.sendGetData(inv.AddrFrom, "tx", txID)
		}
	}
	return nil
}

func (s *State) handleGetData(payload []byte) error {
	var g getDataMsg
	if err := gobDecode(payload, &g); err != nil {
		return err
	}

	switch g.Kind {
	case "block":
		block, err := s.Chain.GetBlock(g.ID)
		if err != nil {
			return nil // not found: silently drop the request
		}
		s.sendBlock(g.AddrFrom, block)
	case "tx":
		tx, ok := s.mempoolGet(g.ID)
		if !ok {
			return nil
		}
		s.sendTx(g.AddrFrom, tx)
	}
	return nil
}

func (s *State) handleBlock(payload []byte) error {
	var b blockMsg
	if err := gobDecode(payload, &b); err != nil {
		return err
	}
	block, err := blockchain.DeserializeBlock(b.Block)
	if err != nil {
		return err
	}

	ok, err := block.Validate()
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn("received block failed proof-of-work validation, dropped", "hash", block.Hash)
		return nil
	}
	if !block.IsGenesis() {
		if _, err := s.Chain.GetBlock(block.PrevBlockHash); err != nil {
			s.log.Warn("received block with unknown parent, dropped", "hash", block.Hash, "prev", block.PrevBlockHash)
			return nil
		}
	}
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		ok, err := s.Chain.VerifyTransaction(tx)
		if err != nil || !ok {
			s.log.Warn("received block with invalid transaction, dropped", "hash", block.Hash, "tx", tx.ID)
			return nil
		}
	}

	if err := s.Chain.AddBlock(block); err != nil {
		return err
	}

	if next, ok := s.popBlockInTransit(); ok {
		s.sendGetData(b.AddrFrom, "block", next)
	} else if _, err := s.UTXO.Reindex(); err != nil {
		return err
	}
	return nil
}

func (s *State) handleTx(ctx context.Context, payload []byte) error {
	var t txMsg
	if err := gobDecode(payload, &t); err != nil {
		return err
	}
	tx, err := blockchain.DeserializeTransaction(t.Transaction)
	if err != nil {
		return err
	}
	s.mempoolPut(&tx)

	if s.IsSeed() {
		for _, addr := range s.peers() {
			if addr != s.nodeAddress && addr != t.AddrFrom {
				s.sendInv(addr, "tx", []string{tx.ID})
			}
		}
		return nil
	}

	if s.miningAddress != "" {
		return s.mineMempool(ctx)
	}
	return nil
}

// mineMempool repeatedly mines every verified mempool transaction into
// a block, rewarding miningAddress, until the mempool is empty. It
// runs inline on the tx handler's goroutine — mining is never a
// background task.
func (s *State) mineMempool(ctx context.Context) error {
	for s.mempoolSize() > 0 {
		var valid []*blockchain.Transaction
		var invalid []string
		for _, tx := range s.mempoolSnapshot() {
			ok, err := s.Chain.VerifyTransaction(tx)
			if err != nil || !ok {
				s.log.Warn("mempool transaction failed verification, dropping", "tx", tx.ID, "error", err)
				invalid = append(invalid, tx.ID)
				continue
			}
			valid = append(valid, tx)
		}
		if len(invalid) > 0 {
			s.mempoolDelete(invalid...)
		}
		if len(valid) == 0 {
			return nil
		}

		coinbase, err := blockchain.NewCoinbaseTx(s.miningAddress, "")
		if err != nil {
			return err
		}
		valid = append(valid, coinbase)

		block, err := s.Chain.MineBlock(ctx, valid)
		if err != nil {
			return err
		}

		if _, err := s.UTXO.Reindex(); err != nil {
			return err
		}

		ids := make([]string, 0, len(valid))
		for _, tx := range valid {
			ids = append(ids, tx.ID)
		}
		s.mempoolDelete(ids...)

		s.log.Info("mined block from mempool", "hash", block.Hash, "txs", len(valid))
		for _, addr := range s.peers() {
			if addr != s.nodeAddress {
				s.sendInv(addr, "block", []string{block.Hash})
			}
		}
	}
	return nil
}
