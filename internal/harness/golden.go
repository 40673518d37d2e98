package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/numerus/internal/ir"
)

// ErrGoldenMismatch is returned by CheckGoldenFile when a snapshot differs
// from the file on disk.
var ErrGoldenMismatch = errors.New("snapshot differs from golden file")

// Snapshot renders a result deterministically: a canonical JSON header line
// followed by the emitted IR, if any.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	header := map[string]any{
		"scenario_name": scenarioName,
	}

	if result.Compiled() {
		header["program"] = result.Program.Summary()
		if result.Build != nil {
			header["build"] = map[string]any{
				"id":           result.Build.ID,
				"seq":          result.Build.Seq,
				"cache_key":    result.Build.CacheKey,
				"program_hash": result.Build.ProgramHash,
				"target":       result.Build.Target,
			}
		}
	} else {
		header["error"] = map[string]any{
			"kind": string(result.ErrorKind),
			"line": result.ErrorLine,
		}
	}

	data, err := ir.MarshalCanonical(header)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(data)
	buf.WriteByte('\n')
	if result.IR != "" {
		buf.WriteByte('\n')
		buf.WriteString(result.IR)
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// CheckGoldenFile compares data with dir/name.golden outside of go test.
// With update set, or when the file does not exist yet, the file is
// (re)written and written reports true.
func CheckGoldenFile(dir, name string, data []byte, update bool) (written bool, err error) {
	path := filepath.Join(dir, name+".golden")

	existing, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && update) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}

	if !bytes.Equal(existing, data) {
		return false, fmt.Errorf("%s: %w", path, ErrGoldenMismatch)
	}
	return false, nil
}
