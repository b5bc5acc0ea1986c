package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/multilogin/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the multilogin version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rootCmd.Name(), version.String())
	},
}

func init() {
	rootCmd.Version = version.Short()
	rootCmd.AddCommand(versionCmd)
}
