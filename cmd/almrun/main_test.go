package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/almrun/internal/config"
)

// writeRunConfig points a run configuration at the sample inputs and scenarios
func writeRunConfig(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := "scenario: stress\n" +
		"horizon: 5\n" +
		"workers: 2\n" +
		"inputs: " + filepath.Join(root, "configs", "inputs.yaml") + "\n" +
		"output: " + filepath.Join(dir, "out") + "\n" +
		"progress_interval: 0s\n" +
		"scenarios:\n  dir: " + filepath.Join(root, "scenarios") + "\n"
	path := filepath.Join(dir, "almrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--json-logs", "--log-level", "warn"))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "-c", writeRunConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "scenario:            stress (3 paths)")
	assert.Contains(t, out, "cohorts:             3 (1 fund-linked chains)")
	assert.Contains(t, out, "default probability:")
}

func TestProjectCommand(t *testing.T) {
	path := writeRunConfig(t)
	out, err := execute(t, "project", "-c", path, "--paths", "1,3", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "status:   finished")
	assert.Contains(t, out, "paths:    2")

	files, err := filepath.Glob(filepath.Join(filepath.Dir(path), "out", "*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	runID := strings.TrimSuffix(filepath.Base(files[0]), ".jsonl")
	out, err = execute(t, "export", runID, "-c", path, "--precision", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "csv:     "+filepath.Join(filepath.Dir(path), "out", runID+".aggregate.csv"))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "out", runID+".aggregate.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "run_id,scenario,path,kind,key,timestep,"))

	_, err = execute(t, "export", "no-such-run", "-c", path)
	assert.Error(t, err)
}

func TestValidateCommand_UnknownScenario(t *testing.T) {
	_, err := execute(t, "validate", "-c", writeRunConfig(t), "--scenario", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario missing not found")
}

func TestApplyRunFlags(t *testing.T) {
	cmd := newProjectCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--paths", "2,4", "--workers", "3", "--no-fund-link", "--horizon", "7"}))

	cfg := config.DefaultRunConfig()
	require.NoError(t, applyRunFlags(cmd.Flags(), &cfg))
	assert.Equal(t, []int{2, 4}, cfg.Paths)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 7, cfg.Horizon)
	assert.False(t, cfg.FundLinked)

	bad := newProjectCmd()
	require.NoError(t, bad.Flags().Parse([]string{"--workers", "0"}))
	assert.Error(t, applyRunFlags(bad.Flags(), &cfg))
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", true))
	assert.Error(t, setupLogging("loud", true))
	require.NoError(t, setupLogging("info", true))
}
