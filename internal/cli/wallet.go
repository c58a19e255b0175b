package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilimba/ledger/internal/wallet"
)

func newCreateWalletCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "createwallet",
		Short: "Generate a new wallet and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return printErr(err)
			}

			ks, err := wallet.Open(cfg.WalletsPath())
			if err != nil {
				return printErr(err)
			}
			defer ks.Close()

			address, err := ks.CreateWallet()
			if err != nil {
				return printErr(err)
			}
			if err := ks.SaveAll(); err != nil {
				return printErr(err)
			}

			fmt.Println(address)
			return nil
		},
	}
}

func newListAddressesCmd(loadConfig loadConfigFunc, newLogger newLoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "listaddresses",
		Short: "Print every local wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return printErr(err)
			}

			ks, err := wallet.Open(cfg.WalletsPath())
			if err != nil {
				return printErr(err)
			}
			defer ks.Close()

			for _, address := range ks.GetAllAddresses() {
				fmt.Println(address)
			}
			return nil
		},
	}
}
