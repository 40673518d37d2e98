package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/numerus/internal/backend"
	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/config"
	"github.com/roach88/numerus/internal/driver"
	"github.com/roach88/numerus/internal/ir"
	"github.com/roach88/numerus/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output       string // executable, or IR file with --ssa ("-" for stdout)
	Target       string // QBE target
	SSA          bool   // emit IR instead of an executable
	PrintResults bool   // print top-level values at run time
	Database     string // build history database
	NoCache      bool   // ignore cached IR in the history
	QBE          string // qbe executable
	CC           string // C compiler driver

	runner backend.Runner // nil runs real tools
}

// BuildResult is the payload of a successful build.
type BuildResult struct {
	Source       string `json:"source"`
	Output       string `json:"output"`
	Target       string `json:"target"`
	SSA          bool   `json:"ssa"`
	PrintResults bool   `json:"print_results"`
	Cached       bool   `json:"cached"`
	ProgramHash  string `json:"program_hash"`
	BuildID      string `json:"build_id,omitempty"`
	IR           string `json:"ir,omitempty"` // only for --ssa -o -
}

// String renders the text form of a build result.
func (r BuildResult) String() string {
	what := "executable"
	if r.SSA {
		what = "IR"
	}
	msg := fmt.Sprintf("✓ Wrote %s to %s (%s)", what, r.Output, r.Target)
	if r.Cached {
		msg += " from cache"
	}
	return msg
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(rootOpts, nil)
}

func newBuildCommand(rootOpts *RootOptions, runner backend.Runner) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts, runner: runner}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a program to an executable or QBE IR",
		Long: `Compile a numerus program.

By default the program is lowered to QBE IR, assembled with qbe and
linked with cc into an executable. With --ssa the IR itself is written
instead, and no external tools are needed.

Flags override the config file, which overrides built-in defaults.
With --db every build is recorded, and a build whose source and options
match a recorded one reuses its IR.

Exit codes:
  0 - Build succeeded
  2 - Compile error, invalid configuration or toolchain failure

Examples:
  numerus build prog.num
  numerus build prog.num -o prog -t arm64
  numerus build prog.num --ssa -o -
  numerus build prog.num --db builds.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", defaults.Output, "output file path")
	cmd.Flags().StringVarP(&opts.Target, "target", "t", defaults.Target, "compile for a target among: amd64_sysv, amd64_apple, arm64, arm64_apple, rv64")
	cmd.Flags().BoolVar(&opts.SSA, "ssa", false, "output QBE IR instead of an executable")
	cmd.Flags().BoolVar(&opts.PrintResults, "print", defaults.PrintResults, "print the value of every top-level expression")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record builds in this SQLite database")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "always recompile, even when a cached build exists")
	cmd.Flags().StringVar(&opts.QBE, "qbe", defaults.QBE, "qbe executable")
	cmd.Flags().StringVar(&opts.CC, "cc", defaults.CC, "C compiler used for linking")

	return cmd
}

// buildConfig layers explicitly set flags over the loaded config.
func buildConfig(opts *BuildOptions, cmd *cobra.Command, f *OutputFormatter) (config.Config, error) {
	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("target") {
		cfg.Target = opts.Target
	}
	if flags.Changed("print") {
		cfg.PrintResults = opts.PrintResults
	}
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("qbe") {
		cfg.QBE = opts.QBE
	}
	if flags.Changed("cc") {
		cfg.CC = opts.CC
	}

	if err := cfg.Validate(); err != nil {
		return cfg, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}
	return cfg, nil
}

func runBuild(opts *BuildOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := buildConfig(opts, cmd, f)
	if err != nil {
		return err
	}
	target, err := backend.ParseTarget(cfg.Target)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read source: %v", err), nil, err)
	}
	source := string(data)

	var st *store.Store
	if cfg.Database != "" {
		st, err = store.Open(cfg.Database)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		f.VerboseLog("Recording builds in %s", cfg.Database)
	}

	result := BuildResult{
		Source:       path,
		Output:       cfg.Output,
		Target:       string(target),
		SSA:          opts.SSA,
		PrintResults: cfg.PrintResults,
	}

	var (
		text    string
		program *ir.Program
	)

	cached, hit, err := lookupCached(ctx, st, opts, source, target, cfg.PrintResults)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}
	if hit {
		f.VerboseLog("Reusing IR of build %s", cached.ID)
		text = cached.IR
		result.Cached = true
		result.ProgramHash = cached.ProgramHash
		result.BuildID = cached.ID
	} else {
		res, err := driver.Compile(source, compiler.Options{PrintResults: cfg.PrintResults})
		if err != nil {
			return f.CompileFailure(path, err)
		}
		text = res.IR
		program = res.Program
		result.ProgramHash = res.ProgramHash
		f.VerboseLog("Compiled %d statement(s) into %d function(s)", res.Statements, len(program.Functions))
	}

	if opts.SSA {
		if err := writeIR(cmd.OutOrStdout(), cfg.Output, text, opts.Format); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil, err)
		}
		if cfg.Output == "-" && opts.Format == "json" {
			result.IR = text
		}
	} else {
		tc := &backend.Toolchain{QBE: cfg.QBE, CC: cfg.CC, Target: target, Runner: opts.runner}
		if err := tc.Build(ctx, text, cfg.Output); err != nil {
			var toolErr *backend.ToolError
			if errors.As(err, &toolErr) {
				details := map[string]interface{}{"tool": toolErr.Tool, "output": toolErr.Output}
				return f.Fail(ExitCommandError, ErrCodeToolchain, err.Error(), details, err)
			}
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil, err)
		}
	}

	if st != nil && program != nil {
		recordOutput := cfg.Output
		if opts.SSA {
			recordOutput = ""
		}
		b, err := store.NewBuild(path, source, program, string(target), recordOutput, cfg.PrintResults)
		if err == nil {
			b, err = st.RecordBuild(ctx, b)
		}
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		result.BuildID = b.ID
	}

	// The IR already went to stdout.
	if opts.SSA && cfg.Output == "-" && opts.Format != "json" {
		return nil
	}
	return f.Success(result)
}

// lookupCached finds reusable IR for source. Without a store, or with
// --no-cache, it always misses.
func lookupCached(ctx context.Context, st *store.Store, opts *BuildOptions, source string, target backend.Target, printResults bool) (store.Build, bool, error) {
	if st == nil || opts.NoCache {
		return store.Build{}, false, nil
	}
	key, err := ir.CacheKey(ir.SourceHash(source), string(target), printResults)
	if err != nil {
		return store.Build{}, false, err
	}
	return st.LookupCached(ctx, key)
}

// writeIR writes text to path, or to stdout for "-". JSON output carries
// the IR in the response instead.
func writeIR(stdout io.Writer, path, text, format string) error {
	if path == "-" {
		if format == "json" {
			return nil
		}
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}
	return nil
}
