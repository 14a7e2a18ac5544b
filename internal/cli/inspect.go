// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/alchemist/modules"
	"github.com/luxfi/alchemist/precompile"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the resolved config or the precompile ABI",
}

var inspectConfigCmd = &cobra.Command{
	Use:   "config [config]",
	Short: "Print the config after defaults, dotenv files and environment overrides",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			configFile = args[0]
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var inspectABICmd = &cobra.Command{
	Use:   "abi",
	Short: "List the precompile methods with their selectors and gas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, m := range modules.RegisteredModules() {
			fmt.Fprintf(w, "%s\t%s\n", m.ConfigKey, m.Address.Hex())
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "SELECTOR\tGAS\tVIEW\tMETHOD")
		for _, m := range precompile.Methods() {
			fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", m.Selector, m.Gas, m.ReadOnly, m.Name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.AddCommand(inspectConfigCmd)
	inspectCmd.AddCommand(inspectABICmd)
}
