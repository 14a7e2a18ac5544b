// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/alchemist/internal/sim"
)

var (
	errScenarioFailed = errors.New("scenario failed")
	errBadFormat      = errors.New("unknown output format")
)

var simulateOutput string

// simulateCmd runs the steps of a scenario
var simulateCmd = &cobra.Command{
	Use:   "simulate [config]",
	Short: "Run a scenario and report the final state",
	Long: `Deploy the engine described by the config, apply its steps in order and
print each step's result followed by the settled state of every account, pool
and transmuter queue.

The command fails if a step errors without expect_error, a step marked
expect_error succeeds, or an accounting invariant breaks.

Examples:
    alchemist simulate scenario.yaml
    alchemist simulate --conf scenario.yaml --output yaml
    ALCHEMIST_ENGINE_LIQUIDATION_PENALTY_BPS=0 alchemist simulate scenario.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulateOutput, "output", "o", "text", "output format: text, yaml or json")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		configFile = args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	world, err := sim.Build(cfg, newLogger())
	if err != nil {
		return err
	}
	report, err := world.Run()
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), report, simulateOutput); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d unexpected results, %d invariant violations",
			errScenarioFailed, report.Failed, report.Violations)
	}
	return nil
}

func writeReport(w io.Writer, r *sim.Report, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text", "":
		return writeText(w, r)
	default:
		return fmt.Errorf("%w: %q", errBadFormat, format)
	}
}

func writeText(out io.Writer, r *sim.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "#\tOP\tACCOUNT\tBLOCK\tGAS\tRESULT")
	for _, s := range r.Steps {
		result := s.Output
		if s.Error != "" {
			result = "error: " + s.Error
		}
		if s.Unexpected {
			result = "UNEXPECTED " + result
		}
		if s.Invariants != "" {
			result += " [invariants: " + s.Invariants + "]"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", s.Index, s.Op, s.Account, s.Block, s.Gas, result)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ACCOUNT\tDEBT\tCOLLATERAL\tSTATE\tPOSITIONS\tBALANCES")
	for _, a := range r.Accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Name, a.Debt, a.Collateral, a.State, joinAmounts(a.Positions), joinAmounts(a.Balances))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "POOL\tRATE\tBALANCE\tSHARES\tDEFICIT\tENABLED")
	for _, p := range r.Pools {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", p.Symbol, p.Rate, p.Balance, p.TotalShares, p.Deficit, p.Enabled)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "QUEUE\tBUFFER\tSTAKED\tRESERVED")
	for _, q := range r.Queues {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.Symbol, q.Buffer, q.Staked, q.Reserved)
	}
	fmt.Fprintf(w, "\nblock %d, %d steps, %d unexpected, %d invariant violations\n",
		r.Block, len(r.Steps), r.Failed, r.Violations)
	return w.Flush()
}

func joinAmounts(m map[string]string) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += m[k] + " " + k
	}
	return out
}
