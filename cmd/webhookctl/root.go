package main

import (
	"fmt"
	"os"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version = "dev"

var cfgFile string

// newRootCmd builds the command tree; tests build their own to keep flags isolated
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webhookctl",
		Short:         "webhookctl: operate a webhook relay (sources, missed requests, signing secrets)",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (toml, default ./.env)")

	root.AddCommand(newValidateCmd(), newMissedCmd(), newSecretCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	return config.Load(v)
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
