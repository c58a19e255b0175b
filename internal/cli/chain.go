package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilimba/ledger/internal/blockchain"
	"github.com/kilimba/ledger/internal/codec"
	"github.com/kilimba/ledger/internal/network"
	"github.com/kilimba/ledger/internal/wallet"
)

func newCreateBlockchainCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "createblockchain <address>",
		Short: "Create a new chain with a genesis block paying address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !codec.ValidateAddress(address) {
				return printErr(fmt.Errorf("invalid address %q", address))
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

			chain, err := blockchain.CreateBlockchain(context.Background(), cfg.BlocksPath(), address, lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer chain.Close()

			utxo, err := blockchain.OpenUTXOIndex(cfg.UTXOPath(), chain, lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer utxo.Close()

			if _, err := utxo.Reindex(); err != nil {
				return printErr(err)
			}

			fmt.Println("Finished creating blockchain!")
			return nil
		},
	}
}

func newGetBalanceCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "getbalance <address>",
		Short: "Print the UTXO balance of address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !codec.ValidateAddress(address) {
				return printErr(fmt.Errorf("invalid address %q", address))
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

			chain, err := blockchain.OpenBlockchain(cfg.BlocksPath(), lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer chain.Close()

			utxo, err := blockchain.OpenUTXOIndex(cfg.UTXOPath(), chain, lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer utxo.Close()

			pubKeyHash, err := codec.DecodeAddress(address)
			if err != nil {
				return printErr(err)
			}
			outs, err := utxo.FindUTXO(pubKeyHash)
			if err != nil {
				return printErr(err)
			}

			balance := 0
			for _, out := range outs {
				balance += out.Value
			}
			fmt.Printf("Balance: %d\n", balance)
			return nil
		},
	}
}

func newSendCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	var mine bool

	cmd := &cobra.Command{
		Use:   "send <from> <to> <amount>",
		Short: "Send amount from one address to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			var amount int
			if _, err := fmt.Sscanf(args[2], "%d", &amount); err != nil {
				return printErr(fmt.Errorf("invalid amount %q", args[2]))
			}
			if !codec.ValidateAddress(from) {
				return printErr(fmt.Errorf("invalid from address %q", from))
			}
			if !codec.ValidateAddress(to) {
				return printErr(fmt.Errorf("invalid to address %q", to))
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

			chain, err := blockchain.OpenBlockchain(cfg.BlocksPath(), lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer chain.Close()

			utxo, err := blockchain.OpenUTXOIndex(cfg.UTXOPath(), chain, lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer utxo.Close()

			ks, err := wallet.Open(cfg.WalletsPath())
			if err != nil {
				return printErr(err)
			}
			defer ks.Close()

			w, ok := ks.GetWallet(from)
			if !ok {
				return printErr(fmt.Errorf("no local wallet for address %q", from))
			}

			tx, err := blockchain.NewUTXOTransaction(w, to, amount, utxo, chain)
			if err != nil {
				return printErr(err)
			}

			if mine {
				coinbase, err := blockchain.NewCoinbaseTx(from, "")
				if err != nil {
					return printErr(err)
				}
				block, err := chain.MineBlock(context.Background(), []*blockchain.Transaction{coinbase, tx})
				if err != nil {
					return printErr(err)
				}
				if err := utxo.Update(block); err != nil {
					return printErr(err)
				}
				fmt.Println("Success!")
				return nil
			}

			if err := network.SendTxToSeed(cfg.BootstrapPeer, from, tx); err != nil {
				return printErr(err)
			}
			fmt.Println("Success! Transaction forwarded to the seed node.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "mine the transaction locally instead of forwarding it to the seed")
	return cmd
}

func newPrintChainCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "printchain",
		Short: "Print every block tip-to-genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return printErr(err)
			}
			lg, err := newLogger(cfg)
			if err != nil {
				return printErr(err)
			}
			defer lg.Close()

			chain, err := blockchain.OpenBlockchain(cfg.BlocksPath(), lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer chain.Close()

			it := chain.Iterator()
			for {
				block, err := it.Next()
				if err != nil {
					return printErr(err)
				}

				fmt.Printf("Prev. hash: %s\n", block.PrevBlockHash)
				fmt.Printf("Hash: %s\n", block.Hash)
				ok, err := block.Validate()
				if err != nil {
					return printErr(err)
				}
				fmt.Printf("PoW: %t\n", ok)
				for _, tx := range block.Transactions {
					fmt.Print(tx.String())
				}
				fmt.Println()

				if block.IsGenesis() {
					break
				}
			}
			return nil
		},
	}
}

func newReindexCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the UTXO index from the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return printErr(err)
			}
			lg, err := newLogger(cfg)
			if err != nil {
				return printErr(err)
			}
			defer lg.Close()

			chain, err := blockchain.OpenBlockchain(cfg.BlocksPath(), lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer chain.Close()

			utxo, err := blockchain.OpenUTXOIndex(cfg.UTXOPath(), chain, lg.Logger)
			if err != nil {
				return printErr(err)
			}
			defer utxo.Close()

			count, err := utxo.Reindex()
			if err != nil {
				return printErr(err)
			}

			fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)
			return nil
		},
	}
}
