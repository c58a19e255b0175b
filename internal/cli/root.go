// Package cli wires the cobra command tree onto the core blockchain,
// wallet, and network packages. It is the external, "out of scope"
// collaborator that parses arguments and turns core errors into a
// single printed line — the core never imports this package.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilimba/ledger/internal/config"
	"github.com/kilimba/ledger/internal/logging"
)

// NewRootCommand builds the ledger CLI's command tree.
func NewRootCommand() *cobra.Command {
	var nodeID, dataDir, logLevel, bootstrapPeer string

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "A minimal UTXO-based blockchain node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&nodeID, "node-id", "", "identifies this node's data directory (required)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "parent directory of the blocks/utxos/wallets stores")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&bootstrapPeer, "bootstrap-peer", "", "seed node address")

	loadConfig := func() (*config.Config, error) {
		return config.Load(nodeID, map[string]string{
			"data_dir":       dataDir,
			"log_level":      logLevel,
			"bootstrap_peer": bootstrapPeer,
		})
	}

	newLogger := func(cfg *config.Config) (*logging.SugaredCloser, error) {
		lg, err := logging.New(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		return &logging.SugaredCloser{Logger: lg, Close: func() error { return nil }}, nil
	}

	root.AddCommand(
		newCreateWalletCmd(loadConfig, newLogger),
		newListAddressesCmd(loadConfig, newLogger),
		newCreateBlockchainCmd(loadConfig, newLogger),
		newGetBalanceCmd(loadConfig, newLogger),
		newSendCmd(loadConfig, newLogger),
		newPrintChainCmd(loadConfig, newLogger),
		newReindexCmd(loadConfig, newLogger),
		newStartNodeCmd(loadConfig, newLogger),
		newStartMinerCmd(loadConfig, newLogger),
	)

	return root
}

// loadConfigFunc loads the node's configuration given its current
// flag bindings.
type loadConfigFunc func() (*config.Config, error)

// newLoggerFunc builds a sugared logger from a resolved config.
type newLoggerFunc func(*config.Config) (*logging.SugaredCloser, error)

func printErr(err error) error {
	return fmt.Errorf("Error: %v", err)
}
