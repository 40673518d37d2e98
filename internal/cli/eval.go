package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/numerus/internal/eval"
)

// EvalResult holds the printed value of every top-level expression.
// Values are strings so NaN and infinities survive JSON.
type EvalResult struct {
	Values []string `json:"values"`
}

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	MaxCalls int // function call budget, 0 for unlimited
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Interpret a program without building it",
		Long: `Run a program with the built-in interpreter and print the value of
every top-level expression, exactly as the built executable would.

Evaluation stops once it has made --max-calls function calls.

Examples:
  numerus eval prog.num
  numerus eval prog.num --max-calls 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxCalls, "max-calls", eval.DefaultMaxCalls, "maximum function calls (0 = unlimited)")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read source: %v", err), nil, err)
	}

	limit := eval.WithMaxCalls(opts.MaxCalls)
	if opts.Format != "json" {
		if err := eval.Run(string(data), cmd.OutOrStdout(), limit); err != nil {
			return evalFailure(f, path, err)
		}
		return nil
	}

	values, err := eval.Eval(string(data), limit)
	if err != nil {
		return evalFailure(f, path, err)
	}
	result := EvalResult{Values: make([]string, len(values))}
	for i, v := range values {
		result.Values[i] = strings.TrimSuffix(fmt.Sprintf(eval.ResultFormat, v), "\n")
	}
	return f.Success(result)
}

func evalFailure(f *OutputFormatter, path string, err error) error {
	if eval.IsCallsExceededError(err) {
		return f.Fail(ExitCommandError, ErrCodeEvalLimit, fmt.Sprintf("%s: %v", path, err), nil, err)
	}
	return f.CompileFailure(path, err)
}
