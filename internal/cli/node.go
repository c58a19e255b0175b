package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilimba/ledger/internal/blockchain"
	"github.com/kilimba/ledger/internal/codec"
	"github.com/kilimba/ledger/internal/network"
)

func runNode(loadConfig loadConfigFunc, newLogger newLoggerFunc, port, miningAddress string) error {
	if miningAddress != "" && !codec.ValidateAddress(miningAddress) {
		return printErr(fmt.Errorf("invalid mining address %q", miningAddress))
	}

	cfg, err := loadConfig()
	if err != nil {
		return printErr(err)
	}
	lg, err := newLogger(cfg)
	if err != nil {
		return printErr(err)
	}
	defer lg.Close()

	chain, err := blockchain.OpenChainForNode(cfg.BlocksPath(), lg.Logger)
	if err != nil {
		return printErr(err)
	}

	utxo, err := blockchain.OpenUTXOIndex(cfg.UTXOPath(), chain, lg.Logger)
	if err != nil {
		return printErr(err)
	}

	nodeAddress := cfg.NodeAddress(port)
	if miningAddress != "" {
		lg.Logger.Info("mining enabled", "address", miningAddress)
	}

	if err := network.StartServer(context.Background(), chain, utxo, nodeAddress, miningAddress, cfg.BootstrapPeer, lg.Logger); err != nil {
		return printErr(err)
	}
	return nil
}

func newStartNodeCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "startnode <port>",
		Short: "Run a non-mining node on localhost:<port>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(loadConfig, newLogger, args[0], "")
		},
	}
}

func newStartMinerCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "startminer <port> <address>",
		Short: "Run a mining node on localhost:<port> rewarding address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(loadConfig, newLogger, args[0], args[1])
		},
	}
}
