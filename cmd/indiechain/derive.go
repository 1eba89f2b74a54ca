package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tolelom/indiechain/core"
)

// deriveCmd prints the addresses a client needs to build transactions
// without asking a node.
var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "print derived record and account keys",
}

var deriveGameCmd = &cobra.Command{
	Use:   "game <owner> <name>",
	Short: "game key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(core.GameKey(args[0], args[1]))
	},
}

var deriveAssetCmd = &cobra.Command{
	Use:   "asset <game> <name> [holder]",
	Short: "asset key, its token and optionally the holder's account",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		asset := core.AssetKey(args[0], args[1])
		token := core.TokenKey(args[0], asset)
		cmd.Println("asset:", asset)
		cmd.Println("token:", token)
		if len(args) == 3 {
			account := core.AccountKey(token, args[2])
			cmd.Println("account:", account)
			cmd.Println("authority:", core.HolderAuthorityKey(account))
		}
	},
}

var deriveSaleCmd = &cobra.Command{
	Use:   "sale <listing-id>",
	Short: "sale key and escrow account of a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		sale := core.SaleKey(id)
		cmd.Println("sale:", sale)
		cmd.Println("escrow:", core.EscrowAccountKey(sale))
		return nil
	},
}

var deriveCreditCmd = &cobra.Command{
	Use:   "credit <owner> [amount]",
	Short: "credit account of owner; converts a display amount to base units",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("account:", core.CreditAccountKey(args[0]))
		if len(args) == 2 {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return err
			}
			units := amount.Shift(core.CreditDecimals)
			if !units.Equal(units.Truncate(0)) || units.IsNegative() {
				return fmt.Errorf("%s is not a whole number of base units", args[1])
			}
			cmd.Println("units:", units.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	deriveCmd.AddCommand(deriveGameCmd, deriveAssetCmd, deriveSaleCmd, deriveCreditCmd)
}
