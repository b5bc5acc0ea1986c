package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/method"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server.
Checks syntax, server settings and resolves every login method against the
registered verifiers, handlers, extractors and client type resolvers.`,
	RunE: runConfigValidate,
}

var configRoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the resolved login endpoints",
	RunE:  runConfigRoutes,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an example config file",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().StringP("output", "o", defaultConfigFile, "output path")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")

	configCmd.AddCommand(configValidateCmd, configRoutesCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// loadTable loads, validates and resolves the config at path.
func loadTable(path string) (*method.Table, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	return method.Resolve(cfg.Login, reg)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	path := configPath()
	table, err := loadTable(path)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d login methods)\n", path, table.Len())
	return nil
}

func runConfigRoutes(cmd *cobra.Command, _ []string) error {
	table, err := loadTable(configPath())
	if err != nil {
		return err
	}
	return printRoutes(cmd.OutOrStdout(), table)
}

// printRoutes writes one row per method and client type.
func printRoutes(out io.Writer, table *method.Table) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tENDPOINT\tCLIENT TYPE\tVERIFIER\tEXTRACTORS")
	for _, d := range table.Describe() {
		for i, ct := range d.ClientTypes {
			name := ct
			if i == 0 {
				name += " (default)"
			}
			fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
				d.Name, d.HTTPMethod, d.Path, name, d.Verifiers[ct],
				strings.Join(d.ParameterExtractors, "+"))
		}
	}
	if table.Len() == 0 {
		fmt.Fprintln(w, "(login disabled or no methods configured)\t\t\t\t")
	}
	return w.Flush()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if _, statErr := os.Stat(output); statErr == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(defaultConfigTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Config file created at %s\n", output)
	fmt.Fprintln(out, "\nNext steps:")
	lo.ForEach([]string{
		"Register your verifiers and reference them under login.methods",
		"Validate with: multilogin config validate --config " + output,
		"Start the server: multilogin serve --config " + output,
	}, func(step string, i int) {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	})
	return nil
}
