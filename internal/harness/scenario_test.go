package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/hypotenuse.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hypotenuse", s.Name)
	assert.Equal(t, "sq(x) = x * x\nhyp(a, b) = (sq(a) + sq(b)) ^ 0.5\nhyp(3, 4)\n", s.Source)
	assert.True(t, s.PrintResults)
	assert.Equal(t, "arm64", s.Target)
	require.NotNil(t, s.Expect)
	assert.Equal(t, []float64{5}, s.Expect.Values)
	require.Len(t, s.Assertions, 7)
	assert.Equal(t, AssertInstructionCount, s.Assertions[2].Type)
	require.NotNil(t, s.Assertions[2].Count)
	assert.Equal(t, 2, *s.Assertions[2].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte("name: x\ndescription: d\nsource: \"1\"\nassertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\nsource: \"1\"\nexpect: {values: [1]}\n", "name is required"},
		{"path in name", "name: a/b\ndescription: d\nsource: \"1\"\nexpect: {values: [1]}\n", "path separators"},
		{"no description", "name: n\nsource: \"1\"\nexpect: {values: [1]}\n", "description is required"},
		{"blank source", "name: n\ndescription: d\nsource: \"  \"\nexpect: {values: [1]}\n", "source is required"},
		{"bad target", "name: n\ndescription: d\nsource: \"1\"\ntarget: x86\nexpect: {values: [1]}\n", "unknown target"},
		{"nothing checked", "name: n\ndescription: d\nsource: \"1\"\n", "expect or assertions"},
		{"error with values", "name: n\ndescription: d\nsource: \"1\"\nexpect: {error: NAME_ERROR, values: [1]}\n", "values cannot be combined"},
		{"error with assertions", "name: n\ndescription: d\nsource: \"1\"\nexpect: {error: NAME_ERROR}\nassertions: [{type: ir_contains, text: add}]\n", "successful compile"},
		{"untyped assertion", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{text: add}]\n", "type is required"},
		{"unknown assertion", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: trace_order}]\n", "unknown type"},
		{"contains without text", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: ir_contains}]\n", "requires text"},
		{"count without function", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: instruction_count, count: 1}]\n", "requires function"},
		{"count without count", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: instruction_count, function: main}]\n", "requires count"},
		{"defined without function", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: function_defined}]\n", "requires function"},
		{"postfix without line", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: postfix, postfix: \"1\"}]\n", "1-based line"},
		{"stored build without expect", "name: n\ndescription: d\nsource: \"1\"\nassertions: [{type: stored_build}]\n", "requires expect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"arity_mismatch",
		"hypotenuse",
		"invalid_character",
		"precedence",
		"redeclaration",
		"undeclared_name",
	}, names)
}

func TestLoadDir_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yml", "name: b\ndescription: d\nsource: \"1\"\nexpect: {values: [1]}\n")
	writeScenario(t, dir, "a.yaml", "name: a\ndescription: d\nsource: \"1\"\nexpect: {values: [1]}\n")
	writeScenario(t, dir, "notes.txt", "not a scenario")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "golden"), 0o755))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "name: same\ndescription: d\nsource: \"1\"\nexpect: {values: [1]}\n")
	writeScenario(t, dir, "b.yaml", "name: same\ndescription: d\nsource: \"1\"\nexpect: {values: [1]}\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"same" already used`)
}

func TestLoadDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "broken.yaml", "name: [\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
