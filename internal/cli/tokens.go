package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/parser"
)

// LineTokens is the token dump of one source line.
type LineTokens struct {
	Line      int    `json:"line"` // 1-based
	Statement string `json:"statement"`
	Name      string `json:"name,omitempty"`
	Tokens    string `json:"tokens"`
	Postfix   string `json:"postfix"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Show the tokens and postfix form of every line",
		Long: `Tokenize every non-blank line of a program and show the postfix
body the compiler lowers. Useful for checking operator precedence.

Example:
  numerus tokens prog.num`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runTokens(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read source: %v", err), nil, err)
	}

	lines, err := dumpTokens(string(data))
	if err != nil {
		return f.CompileFailure(path, err)
	}

	if opts.Format == "json" {
		return f.Success(lines)
	}

	w := cmd.OutOrStdout()
	for _, lt := range lines {
		header := fmt.Sprintf("%d: %s", lt.Line, lt.Statement)
		if lt.Name != "" {
			header += " " + lt.Name
		}
		fmt.Fprintln(w, header)
		fmt.Fprintf(w, "  tokens:  %s\n", lt.Tokens)
		fmt.Fprintf(w, "  postfix: %s\n", lt.Postfix)
	}
	return nil
}

// dumpTokens renders each statement of source. It stops at the first line
// that does not parse, like the compiler.
func dumpTokens(source string) ([]LineTokens, error) {
	lines := []LineTokens{}
	for i, line := range strings.Split(source, "\n") {
		line = strings.TrimSuffix(line, "\r")

		stmt, err := parser.ParseLine(i, line)
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			continue
		}

		// ParseLine already tokenized the line successfully.
		tokens, _ := lexer.Tokenize(line)
		lt := LineTokens{
			Line:    i + 1,
			Tokens:  lexer.Join(tokens),
			Postfix: lexer.Join(stmt.Postfix()),
		}
		switch s := stmt.(type) {
		case *parser.Declaration:
			lt.Statement = "declaration"
			lt.Name = fmt.Sprintf("%s(%s)", s.Name, strings.Join(s.Params, ", "))
		case *parser.Expression:
			lt.Statement = "expression"
		}
		lines = append(lines, lt)
	}
	return lines, nil
}
