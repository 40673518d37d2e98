// Package backend turns QBE IR into an executable with the external qbe
// and C toolchains.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Target is a QBE code generation target.
type Target string

const (
	AMD64SysV  Target = "amd64_sysv"
	AMD64Apple Target = "amd64_apple"
	ARM64      Target = "arm64"
	ARM64Apple Target = "arm64_apple"
	RV64       Target = "rv64"
)

// DefaultTarget is used when no target is configured.
const DefaultTarget = AMD64SysV

// Targets lists every target qbe accepts, in qbe's own order.
var Targets = []Target{AMD64SysV, AMD64Apple, ARM64, ARM64Apple, RV64}

// ParseTarget validates a target name. The empty string selects
// DefaultTarget.
func ParseTarget(s string) (Target, error) {
	if s == "" {
		return DefaultTarget, nil
	}
	for _, t := range Targets {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, len(Targets))
	for i, t := range Targets {
		names[i] = string(t)
	}
	return "", fmt.Errorf("unknown target %q (want one of %s)", s, strings.Join(names, ", "))
}

// Runner executes an external tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// ToolError reports a tool that could not be run or exited non-zero.
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Toolchain assembles IR with qbe and links the result with a C compiler
// against libm, which provides pow.
type Toolchain struct {
	QBE    string // qbe executable, default "qbe"
	CC     string // C compiler driver, default "cc"
	Target Target
	Runner Runner // default ExecRunner
}

func (tc *Toolchain) runner() Runner {
	if tc.Runner == nil {
		return ExecRunner{}
	}
	return tc.Runner
}

func (tc *Toolchain) run(ctx context.Context, tool string, args ...string) error {
	slog.Debug("running tool", "tool", tool, "args", strings.Join(args, " "))
	out, err := tc.runner().Run(ctx, tool, args...)
	if err != nil {
		return &ToolError{Tool: tool, Args: args, Output: string(out), Err: err}
	}
	return nil
}

// Assemble runs qbe on ssaPath, writing target assembly to asmPath.
func (tc *Toolchain) Assemble(ctx context.Context, ssaPath, asmPath string) error {
	target := tc.Target
	if target == "" {
		target = DefaultTarget
	}
	return tc.run(ctx, orDefault(tc.QBE, "qbe"), "-t", string(target), "-o", asmPath, ssaPath)
}

// Link runs the C compiler on asmPath, producing the executable output.
func (tc *Toolchain) Link(ctx context.Context, asmPath, output string) error {
	return tc.run(ctx, orDefault(tc.CC, "cc"), "-o", output, asmPath, "-lm")
}

// Build writes ir to a scratch directory, assembles and links it into
// output. Intermediate files are removed afterwards.
func (tc *Toolchain) Build(ctx context.Context, ir string, output string) error {
	dir, err := os.MkdirTemp("", "numerus-build-*")
	if err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}
	defer os.RemoveAll(dir)

	ssaPath := filepath.Join(dir, "out.ssa")
	asmPath := filepath.Join(dir, "out.s")

	if err := os.WriteFile(ssaPath, []byte(ir), 0o644); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}
	if err := tc.Assemble(ctx, ssaPath, asmPath); err != nil {
		return err
	}
	if err := tc.Link(ctx, asmPath, output); err != nil {
		return err
	}

	slog.Info("executable built", "output", output, "target", tc.Target)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
