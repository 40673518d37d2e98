// Package eval interprets numerus programs directly, without QBE.
//
// It serves as a reference for the compiled output: a program evaluated
// here prints the same values its executable would. Name resolution follows
// the compiler exactly, since every program is checked by compiler.Compile
// before it runs.
package eval

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/emirpasic/gods/stacks/linkedliststack"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/parser"
)

// ResultFormat is how each top-level value is printed, matching $fmt in
// the emitted IR.
const ResultFormat = "%2.4f\n"

// function is a declaration together with the functions visible to its
// body: those declared before it.
type function struct {
	decl  *parser.Declaration
	scope map[string]*function
}

// Option configures an evaluation.
type Option func(*interpreter)

// WithMaxCalls limits the function calls one evaluation may make. Zero
// disables the limit. The default is DefaultMaxCalls.
func WithMaxCalls(n int) Option {
	return func(in *interpreter) {
		in.quota.maxCalls = n
	}
}

// interpreter holds the state of one evaluation.
type interpreter struct {
	quota callQuota
}

func newInterpreter(opts []Option) *interpreter {
	in := &interpreter{quota: callQuota{maxCalls: DefaultMaxCalls}}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Eval runs source and returns the value of each top-level expression in
// order.
func Eval(source string, opts ...Option) ([]float64, error) {
	stmts, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return EvalStatements(stmts, opts...)
}

// EvalStatements runs already parsed statements.
func EvalStatements(stmts []parser.Statement, opts ...Option) ([]float64, error) {
	if _, err := compiler.Compile(stmts, compiler.Options{}); err != nil {
		return nil, err
	}

	in := newInterpreter(opts)
	scope := make(map[string]*function)
	var results []float64

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.Declaration:
			next := make(map[string]*function, len(scope)+1)
			for k, v := range scope {
				next[k] = v
			}
			next[s.Name] = &function{decl: s, scope: scope}
			scope = next
		case *parser.Expression:
			v, err := in.evalBody(s.Body, nil, scope)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", s.Line+1, err)
			}
			results = append(results, v)
		}
	}

	slog.Debug("program evaluated", "results", len(results), "calls", in.quota.Current())
	return results, nil
}

// Run evaluates source and prints every result to w with ResultFormat.
func Run(source string, w io.Writer, opts ...Option) error {
	results, err := Eval(source, opts...)
	if err != nil {
		return err
	}
	for _, v := range results {
		if _, err := fmt.Fprintf(w, ResultFormat, v); err != nil {
			return err
		}
	}
	return nil
}

// Postfix evaluates a call-free postfix stream whose operands are all
// numbers.
func Postfix(tokens []lexer.Token) (float64, error) {
	return newInterpreter(nil).evalBody(tokens, nil, nil)
}

// Apply computes one arithmetic operator the way the compiled code does.
func Apply(op lexer.Kind, x, y float64) (float64, error) {
	switch op {
	case lexer.Add:
		return x + y, nil
	case lexer.Subtract:
		return x - y, nil
	case lexer.Multiply:
		return x * y, nil
	case lexer.Divide:
		return x / y, nil
	case lexer.Exponent:
		return math.Pow(x, y), nil
	default:
		return 0, fmt.Errorf("not an operator: %s", op)
	}
}

func (in *interpreter) call(f *function, args []float64) (float64, error) {
	if err := in.quota.Check(f.decl.Name); err != nil {
		return 0, err
	}
	locals := make(map[string]float64, len(args))
	for i, p := range f.decl.Params {
		locals[p] = args[i]
	}
	return in.evalBody(f.decl.Body, locals, f.scope)
}

func (in *interpreter) evalBody(body []lexer.Token, locals map[string]float64, scope map[string]*function) (float64, error) {
	stack := linkedliststack.New()

	pop := func() (float64, error) {
		v, ok := stack.Pop()
		if !ok {
			return 0, fmt.Errorf("operand stack underflow")
		}
		return v.(float64), nil
	}

	for _, tok := range body {
		switch {
		case tok.Kind == lexer.Number:
			stack.Push(tok.Value)

		case tok.Kind == lexer.Identifier:
			if v, ok := locals[tok.Name]; ok {
				stack.Push(v)
				continue
			}
			fn, ok := scope[tok.Name]
			if !ok || len(fn.decl.Params) != 0 {
				return 0, fmt.Errorf("undefined name %q", tok.Name)
			}
			v, err := in.call(fn, nil)
			if err != nil {
				return 0, err
			}
			stack.Push(v)

		case tok.Kind.IsOperator():
			y, err := pop()
			if err != nil {
				return 0, err
			}
			x, err := pop()
			if err != nil {
				return 0, err
			}
			v, err := Apply(tok.Kind, x, y)
			if err != nil {
				return 0, err
			}
			stack.Push(v)

		case tok.Kind == lexer.Call:
			fn, ok := scope[tok.Name]
			if !ok || len(fn.decl.Params) != tok.Args {
				return 0, fmt.Errorf("cannot call %s", tok)
			}
			args := make([]float64, tok.Args)
			for i := tok.Args - 1; i >= 0; i-- {
				v, err := pop()
				if err != nil {
					return 0, err
				}
				args[i] = v
			}
			v, err := in.call(fn, args)
			if err != nil {
				return 0, err
			}
			stack.Push(v)

		default:
			return 0, fmt.Errorf("unexpected token %s", tok)
		}
	}

	if stack.Size() != 1 {
		return 0, fmt.Errorf("expression leaves %d values, want 1", stack.Size())
	}
	return pop()
}
