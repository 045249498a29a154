package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegp/internal/problem"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseRunConfig(t *testing.T) {
	req, err := parseRunConfig([]byte(`
problem: multi-function-solver
population: 40
generations: 12
max_depth: 5
seed: 9
mutation_rate: 0
crossover_rate: 0.8
`))
	require.NoError(t, err)
	assert.Equal(t, problem.MultiFunctionSolverName, req.Problem)
	assert.Equal(t, 40, req.Population)
	assert.Equal(t, 12, req.Generations)
	assert.Equal(t, 5, req.MaxDepth)
	assert.Equal(t, int64(9), req.Seed)
	require.NotNil(t, req.MutationRate)
	assert.Zero(t, *req.MutationRate)
	require.NotNil(t, req.CrossoverRate)
	assert.Equal(t, 0.8, *req.CrossoverRate)

	empty, err := parseRunConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, empty.MutationRate)

	_, err = parseRunConfig([]byte("populaton: 4\n"))
	require.Error(t, err, "unknown fields are rejected")
}

func TestRunFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("problem: function-solver\npopulation: 40\nseed: 3\n"), 0o600))

	var flags runFlags
	cmd := &cobra.Command{Use: "run"}
	flags.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--population", "12", "--crossover-rate", "0.5"}))

	req, err := flags.request(cmd)
	require.NoError(t, err)
	assert.Equal(t, problem.FunctionSolverName, req.Problem)
	assert.Equal(t, 12, req.Population)
	assert.Equal(t, int64(3), req.Seed)
	assert.Nil(t, req.MutationRate)
	require.NotNil(t, req.CrossoverRate)
	assert.Equal(t, 0.5, *req.CrossoverRate)

	var missing runFlags
	cmd = &cobra.Command{Use: "run"}
	missing.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}))
	_, err = missing.request(cmd)
	require.Error(t, err)
}

func TestRunCommandPrintsSummaryAndLogs(t *testing.T) {
	stdout, stderr, err := execute(t, "run", "--store", "memory",
		"--population", "10", "--generations", "2", "--max-depth", "4", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "generation    0")
	assert.Contains(t, stdout, "generation    1")
	assert.Contains(t, stdout, "status=completed")
	assert.Contains(t, stdout, "\nbest=")
	assert.Contains(t, stdout, "\nexpression=")
	assert.Contains(t, stderr, `"msg":"run started"`)
	assert.Contains(t, stderr, `"msg":"run finished"`)
}

func TestRunCommandJSONOutput(t *testing.T) {
	stdout, _, err := execute(t, "run", "--store", "memory", "--json",
		"--problem", problem.MultiFunctionSolverName, "--population", "8", "--generations", "1", "--max-depth", "4")
	require.NoError(t, err)

	var summary struct {
		RunID       string
		Problem     string
		Generations int
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, problem.MultiFunctionSolverName, summary.Problem)
	assert.Equal(t, 1, summary.Generations)
}

func TestRunCommandRejectsBadInput(t *testing.T) {
	_, _, err := execute(t, "run", "--store", "memory", "--problem", "missing")
	require.ErrorIs(t, err, problem.ErrProblemNotFound)

	_, _, err = execute(t, "run", "--store", "memory", "--population", "3", "--generations", "1")
	require.Error(t, err)

	_, _, err = execute(t, "run", "--store", "nope")
	require.Error(t, err)
}

func TestProblemsCommand(t *testing.T) {
	stdout, _, err := execute(t, "problems", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, stdout, problem.FunctionSolverName)
	assert.Contains(t, stdout, problem.MultiFunctionSolverName)
	assert.Equal(t, 2, strings.Count(stdout, "\n"))

	stdout, _, err = execute(t, "problems", "--store", "memory", "--json")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &items))
	assert.Len(t, items, 2)
}

func TestRunsAndHistoryOnEmptyStore(t *testing.T) {
	stdout, _, err := execute(t, "runs", "--store", "memory")
	require.NoError(t, err)
	assert.Equal(t, "no runs\n", stdout)

	_, _, err = execute(t, "history", "--store", "memory", "--latest")
	require.Error(t, err)
}
