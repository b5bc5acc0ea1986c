// Package main is the entry point for multilogin.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "multilogin.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "multilogin",
	Short: "Configuration-driven multi-login server",
	Long: `multilogin serves several login endpoints from one configuration file.
Each endpoint extracts its parameters from the request, resolves the
calling client type and dispatches to the verifier bound to that type.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/multilogin/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
