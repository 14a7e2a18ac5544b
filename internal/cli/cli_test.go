// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/alchemist/internal/config"
	"github.com/luxfi/alchemist/internal/sim"
)

const scenario = "../sim/testdata/scenario.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, envFiles, debug, quiet, simulateOutput = "", nil, false, true, "text"
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimulateText(t *testing.T) {
	out, err := execute(t, "simulate", scenario, "-q")
	require.NoError(t, err)
	require.Contains(t, out, "ACCOUNT")
	require.Contains(t, out, "50 debt for 52.499999 USDC")
	require.Contains(t, out, "block 11, 13 steps, 0 unexpected, 0 invariant violations")
}

func TestSimulateYAML(t *testing.T) {
	out, err := execute(t, "simulate", "--conf", scenario, "--output", "yaml", "-q")
	require.NoError(t, err)

	var r sim.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	require.Len(t, r.Steps, 13)
	require.Equal(t, "240", r.Accounts[0].Debt)
}

func TestSimulateJSON(t *testing.T) {
	out, err := execute(t, "simulate", scenario, "-o", "json", "-q")
	require.NoError(t, err)

	var r sim.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Equal(t, "59.999999", r.Queues[0].Buffer)
}

func TestSimulateFailure(t *testing.T) {
	raw, err := os.ReadFile(scenario)
	require.NoError(t, err)
	// The final step no longer expects its error.
	broken := strings.Replace(string(raw), "    expect_error: true\n", "", 1)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	out, err := execute(t, "simulate", path, "-q")
	require.ErrorIs(t, err, errScenarioFailed)
	require.Contains(t, out, "UNEXPECTED")

	_, err = execute(t, "simulate", scenario, "-o", "xml", "-q")
	require.ErrorIs(t, err, errBadFormat)
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", "config", scenario)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	require.Equal(t, config.DefaultEngineAddress, cfg.Engine.Address)
	require.Len(t, cfg.Steps, 13)

	out, err = execute(t, "inspect", "abi")
	require.NoError(t, err)
	require.Contains(t, out, "deposit(address,uint256,address)")
	require.Contains(t, out, "alchemistConfig")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, rootCmd.Version)
}
