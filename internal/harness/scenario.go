package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/numerus/internal/backend"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the numerus program under test.
	Source string `yaml:"source"`

	// PrintResults compiles top-level expressions with printf calls.
	PrintResults bool `yaml:"print_results,omitempty"`

	// Target is recorded with the build. Defaults to backend.DefaultTarget.
	Target string `yaml:"target,omitempty"`

	// Expect describes the overall outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions inspect a successful compilation.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// BuildID is the fixed id the build is recorded under.
	BuildID string `yaml:"build_id,omitempty"`
}

// ExpectClause specifies the expected outcome of compiling Source.
type ExpectClause struct {
	// Error is the expected driver.Kind. Empty means the compile succeeds.
	Error string `yaml:"error,omitempty"`

	// Line is the expected 1-based line of the error. 0 skips the check.
	Line int `yaml:"line,omitempty"`

	// Values are the top-level results, computed by the reference
	// interpreter.
	Values []float64 `yaml:"values,omitempty"`
}

// Assertion validates the emitted IR or the recorded build.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is the IR fragment (ir_contains, ir_excludes).
	Text string `yaml:"text,omitempty"`

	// Function names a function without "$" (instruction_count,
	// function_defined).
	Function string `yaml:"function,omitempty"`

	// Count is the expected instruction count (instruction_count).
	Count *int `yaml:"count,omitempty"`

	// Params is the expected parameter count (function_defined).
	Params *int `yaml:"params,omitempty"`

	// Line is the 1-based source line (postfix).
	Line int `yaml:"line,omitempty"`

	// Postfix is the expected space-separated rendering (postfix).
	Postfix string `yaml:"postfix,omitempty"`

	// Expect holds expected column values (stored_build).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertIRContains       = "ir_contains"
	AssertIRExcludes       = "ir_excludes"
	AssertInstructionCount = "instruction_count"
	AssertFunctionDefined  = "function_defined"
	AssertPostfix          = "postfix"
	AssertStoredBuild      = "stored_build"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject typos like "assertion:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
// Scenario names must be unique because they name golden files.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	seen := make(map[string]string)
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if strings.TrimSpace(s.Source) == "" {
		return fmt.Errorf("source is required")
	}

	if s.Target != "" {
		if _, err := backend.ParseTarget(s.Target); err != nil {
			return err
		}
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if s.Expect != nil && s.Expect.Error != "" {
		if len(s.Expect.Values) > 0 {
			return fmt.Errorf("expect: values cannot be combined with error")
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions require a successful compile, but expect.error is set")
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertIRContains, AssertIRExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: %s requires text", index, a.Type)
		}
	case AssertInstructionCount:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: instruction_count requires function", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: instruction_count requires count", index)
		}
	case AssertFunctionDefined:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function_defined requires function", index)
		}
	case AssertPostfix:
		if a.Line < 1 {
			return fmt.Errorf("assertions[%d]: postfix requires a 1-based line", index)
		}
	case AssertStoredBuild:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: stored_build requires expect", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}
