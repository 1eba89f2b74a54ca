package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/wallet"
)

// keystorePassword reads the keystore password from the environment; flags
// would leak it through the process list.
func keystorePassword() string {
	password := os.Getenv("INDIECHAIN_PASSWORD")
	if password == "" {
		logrus.Warnln("INDIECHAIN_PASSWORD not set, keystore uses an empty password")
	}
	return password
}

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "generate a validator key and save it to an encrypted keystore",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, _ := cmd.Flags().GetString("key")
		w, err := wallet.Generate(cfg.Genesis.ChainID)
		if err != nil {
			return err
		}
		if err := wallet.SaveKey(keyPath, keystorePassword(), w.PrivKey()); err != nil {
			return err
		}
		cmd.Println("public key:", w.PubKey())
		cmd.Println("saved to:", keyPath)
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "write a config file with the current settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "indiechain.yaml"
		if len(args) > 0 {
			out = args[0]
		}
		if validator, _ := cmd.Flags().GetString("validator"); validator != "" {
			cfg.Validators = []string{validator}
		}
		if err := config.Save(cfg, out); err != nil {
			return err
		}
		cmd.Println("config written to", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(initConfigCmd)

	genkeyCmd.Flags().String("key", "validator.key", "keystore file to write")
	initConfigCmd.Flags().String("validator", "", "single validator public key")
}
