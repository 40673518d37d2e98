package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/numerus/internal/harness"
)

const passingScenario = `name: sum
description: "Adds two numbers"
source: |
  1 + 2
expect:
  values: [3]
`

const failingScenario = `name: wrong-value
description: "Expects the wrong value"
source: |
  2 * 2
expect:
  values: [5]
`

const errorScenario = `name: arity-mismatch
description: "Calls a function with too many arguments"
source: |
  f(x) = x
  f(1, 2)
expect:
  error: ARITY_ERROR
  line: 2
`

// writeScenarios creates a scenarios directory holding the given files.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := writeScenarios(t, nil)

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	dir := writeScenarios(t, nil)

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var result TestResult
	status, _ := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", status)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandMalformedScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"bad.yaml": "name: bad\nsorce: oops\n"})

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenarios")
}

func TestTestCommandPassingCreatesGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"sum.yaml":   passingScenario,
		"arity.yaml": errorScenario,
	})

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ sum (golden created)")
	assert.Contains(t, stdout, "✓ arity-mismatch (golden created)")
	assert.Contains(t, stdout, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.FileExists(t, filepath.Join(dir, "golden", "sum.golden"))

	// Second run compares against the snapshots just written.
	stdout, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ sum\n")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"sum.yaml": passingScenario})
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(golden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "sum.golden"), []byte("stale\n"), 0o644))

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ sum")
	assert.Contains(t, stdout, "golden file mismatch")

	// --update rewrites the snapshot.
	stdout, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ sum (golden updated)")

	s, err := harness.LoadScenario(filepath.Join(dir, "sum.yaml"))
	require.NoError(t, err)
	result, err := harness.Run(s)
	require.NoError(t, err)
	want, err := harness.Snapshot(s.Name, result)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(golden, "sum.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"sum.yaml":   passingScenario,
		"wrong.yaml": failingScenario,
	})

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	status, cliErr := decodeResponse(t, stdout, &result)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, "E_TEST_FAILED", cliErr.Code)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Total)

	// LoadDir sorts by file name: sum.yaml, wrong.yaml.
	require.Len(t, result.Scenarios, 2)
	assert.Equal(t, "wrong-value", result.Scenarios[1].Name)
	assert.False(t, result.Scenarios[1].Pass)
	assert.NotEmpty(t, result.Scenarios[1].Errors)
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"sum.yaml":   passingScenario,
		"wrong.yaml": failingScenario,
		"arity.yaml": errorScenario,
	})

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "s*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestHelpText(t *testing.T) {
	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "conformance")
	assert.Contains(t, stdout, "--update")
	assert.Contains(t, stdout, "--filter")
	assert.Contains(t, stdout, "scenarios-dir")
}

func TestFilterScenarios(t *testing.T) {
	scenarios := []*harness.Scenario{{Name: "cart-add"}, {Name: "cart-remove"}, {Name: "inventory"}}

	kept, err := filterScenarios(scenarios, "cart-*")
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "cart-add", kept[0].Name)

	all, err := filterScenarios(scenarios, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = filterScenarios(scenarios, "[")
	require.Error(t, err)
}
