// Package driver runs the numerus pipeline end to end.
//
// Compile takes source text to formatted QBE IR: parse, lower, validate,
// format, hash. CompileAll does the same for many independent units on a
// bounded worker pool. Neither keeps state between calls.
package driver

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/ir"
	"github.com/roach88/numerus/internal/parser"
)

// Result is a successfully compiled unit.
type Result struct {
	Program     *ir.Program
	IR          string // QBE text, ready for qbe
	SourceHash  string
	ProgramHash string
	Statements  int
}

// InvalidProgramError reports a compiled program that failed validation.
// Compile never produces one for well-formed input; seeing it means the
// code generator has a bug.
type InvalidProgramError struct {
	Errors []compiler.ValidationError
}

func (e *InvalidProgramError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid program: " + strings.Join(msgs, "; ")
}

// Compile translates source into QBE IR. The first failing line aborts the
// whole unit and no IR is returned.
func Compile(source string, opts compiler.Options) (*Result, error) {
	stmts, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	program, err := compiler.Compile(stmts, opts)
	if err != nil {
		return nil, err
	}

	if errs := compiler.Validate(program); len(errs) > 0 {
		return nil, &InvalidProgramError{Errors: errs}
	}

	text := ir.Format(program)
	res := &Result{
		Program:     program,
		IR:          text,
		SourceHash:  ir.SourceHash(source),
		ProgramHash: ir.ProgramHash(program),
		Statements:  len(stmts),
	}

	slog.Debug("unit compiled",
		"statements", res.Statements,
		"functions", len(program.Functions),
		"instructions", program.InstructionCount(),
		"program_hash", shortHash(res.ProgramHash),
	)

	return res, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCompile(source string, opts compiler.Options) *Result {
	res, err := Compile(source, opts)
	if err != nil {
		panic(fmt.Sprintf("driver.MustCompile: %v", err))
	}
	return res
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
