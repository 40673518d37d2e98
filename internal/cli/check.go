package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/driver"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Workers int // concurrent compiles, 0 for GOMAXPROCS
}

// FileResult is the outcome of checking one file.
type FileResult struct {
	File  string `json:"file"`
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Line  int    `json:"line,omitempty"`
	Error string `json:"error,omitempty"`
}

// CheckResult holds the outcome of a check run.
type CheckResult struct {
	Files  []FileResult `json:"files"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Compile programs without building them",
		Long: `Compile every given program to IR and report the first error in each.

Files are compiled concurrently; one failing file does not stop the others.

Exit codes:
  0 - All files compiled
  2 - At least one file failed to compile, or could not be read

Examples:
  numerus check prog.num
  numerus check examples/*.num --workers 4`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "number of files compiled at once (0 = GOMAXPROCS)")

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.Workers
		if err := cfg.Validate(); err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
		}
	}

	units := make([]driver.Unit, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read source: %v", err), nil, err)
		}
		units = append(units, driver.Unit{Name: path, Source: string(data)})
	}

	f.VerboseLog("Checking %d file(s)", len(units))
	results, err := driver.CompileAll(ctx, units, compiler.Options{PrintResults: cfg.PrintResults}, cfg.Workers)
	if err != nil {
		return WrapExitError(ExitCommandError, "check interrupted", err)
	}

	result := CheckResult{
		Files: make([]FileResult, 0, len(results)),
		Total: len(results),
	}
	for _, r := range results {
		fr := FileResult{File: r.Name, OK: r.Err == nil}
		if r.Err != nil {
			kind, line := driver.Classify(r.Err)
			fr.Code = CompileErrorCode(kind)
			fr.Kind = string(kind)
			fr.Line = line
			fr.Error = r.Err.Error()
			result.Failed++
		} else {
			result.Passed++
		}
		result.Files = append(result.Files, fr)
	}

	if opts.Format == "json" {
		return outputCheckJSON(cmd, result)
	}
	return outputCheckText(cmd, result)
}

// outputCheckJSON outputs the check result as JSON.
func outputCheckJSON(cmd *cobra.Command, result CheckResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%d file(s) failed to compile", result.Failed),
		}
	}

	if err := encodeIndented(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	return checkExit(result)
}

// outputCheckText outputs the check result as text.
func outputCheckText(cmd *cobra.Command, result CheckResult) error {
	w := cmd.OutOrStdout()

	for _, fr := range result.Files {
		if fr.OK {
			fmt.Fprintf(w, "✓ %s\n", fr.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fr.File)
		fmt.Fprintf(w, "  [%s] %s\n", fr.Code, fr.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return checkExit(result)
}

func checkExit(result CheckResult) error {
	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitCommandError,
			Message:  fmt.Sprintf("%d file(s) failed to compile", result.Failed),
			Reported: true,
		}
	}
	return nil
}
