// Package compiler lowers parsed statements to a QBE program.
//
// Every declaration becomes a non-exported function returning a double.
// Every top-level expression is appended to the exported main function,
// which returns 0. Values live on a stack while a postfix body is scanned;
// each operator or call pops its operands, emits one instruction into a
// fresh temporary and pushes that temporary back.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/emirpasic/gods/stacks/linkedliststack"

	"github.com/roach88/numerus/internal/ir"
	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/parser"
)

// Options control code generation.
type Options struct {
	// PrintResults makes main print every top-level value with printf.
	PrintResults bool
}

// Reserved names collide with symbols every program defines or links.
var reserved = map[string]bool{
	ir.EntryName: true,
	ir.PowSymbol: true,
	"printf":     true,
	"fmt":        true,
}

// IsReserved reports whether name cannot be declared.
func IsReserved(name string) bool {
	return reserved[name]
}

// signature is the latest declaration of a source name.
type signature struct {
	symbol string
	arity  int
}

type compiler struct {
	opts     Options
	program  *ir.Program
	main     *VariableCounter
	funcs    map[string]signature
	declared map[string]int // declarations seen per source name
}

// Compile lowers stmts in order. Declarations must precede their uses; a
// redeclared name gets a new versioned symbol ($f, $f.1, ...) and later
// references bind to the newest one. The first failing statement aborts
// compilation and no program is returned.
func Compile(stmts []parser.Statement, opts Options) (*ir.Program, error) {
	c := &compiler{
		opts:     opts,
		program:  &ir.Program{Entry: ir.NewEntry()},
		main:     NewVariableCounter(),
		funcs:    make(map[string]signature),
		declared: make(map[string]int),
	}

	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *parser.Declaration:
			err = c.declaration(s)
		case *parser.Expression:
			err = c.expression(s)
		default:
			err = fmt.Errorf("unsupported statement type %T", stmt)
		}
		if err != nil {
			return nil, err
		}
	}

	return c.program, nil
}

func (c *compiler) declaration(d *parser.Declaration) error {
	if IsReserved(d.Name) {
		return &CompileError{
			Code:    ErrCodeReservedName,
			Message: fmt.Sprintf("%q is reserved", d.Name),
			Name:    d.Name,
			Line:    d.Line,
		}
	}

	counter := NewVariableCounter()
	params := make([]ir.Arg, 0, len(d.Params))
	for _, p := range d.Params {
		if _, seen := counter.Lookup(p); seen {
			return &CompileError{
				Code:    ErrCodeDuplicateParameter,
				Message: fmt.Sprintf("parameter %q of %q listed more than once", p, d.Name),
				Name:    p,
				Line:    d.Line,
			}
		}
		params = append(params, ir.D(counter.Bind(p)))
	}

	body, result, err := c.lower(d.Body, counter, d.Line)
	if err != nil {
		return err
	}

	// Registered only after the body is lowered, so the body never sees the
	// function it defines.
	symbol := d.Name
	if n := c.declared[d.Name]; n > 0 {
		symbol += "." + strconv.Itoa(n)
	}
	c.declared[d.Name]++
	c.funcs[d.Name] = signature{symbol: symbol, arity: len(params)}

	c.program.Functions = append(c.program.Functions, ir.Function{
		ReturnType: ir.Double,
		Name:       symbol,
		Params:     params,
		Body:       body,
		Return:     result,
	})
	return nil
}

func (c *compiler) expression(e *parser.Expression) error {
	body, result, err := c.lower(e.Body, c.main, e.Line)
	if err != nil {
		return err
	}

	if c.opts.PrintResults {
		body = append(body, ir.Instruction{
			Dest: c.main.NextTemp(),
			Type: ir.Word,
			Op: ir.Call{
				Func:    "printf",
				Args:    []ir.Arg{{Type: ir.Long, Value: ir.GlobalOf("fmt")}},
				VarArgs: []ir.Arg{ir.D(result)},
			},
		})
	}

	c.program.Entry.Body = append(c.program.Entry.Body, body...)
	return nil
}

var binaryOps = map[lexer.Kind]ir.BinaryOp{
	lexer.Add:      ir.Add,
	lexer.Subtract: ir.Sub,
	lexer.Multiply: ir.Mul,
	lexer.Divide:   ir.Div,
	lexer.Exponent: ir.Exp,
}

// lower scans a postfix body and returns its instructions and the operand
// holding its value.
func (c *compiler) lower(body []lexer.Token, counter *VariableCounter, line int) ([]ir.Instruction, ir.Operand, error) {
	var out []ir.Instruction
	stack := linkedliststack.New()

	emit := func(t ir.Type, op ir.Operation) ir.Operand {
		dest := counter.NextTemp()
		out = append(out, ir.Instruction{Dest: dest, Type: t, Op: op})
		return dest
	}

	operandErr := func(format string, args ...any) error {
		return &CompileError{Code: ErrCodeOperandError, Message: fmt.Sprintf(format, args...), Line: line}
	}

	for _, tok := range body {
		switch {
		case tok.Kind == lexer.Number:
			stack.Push(ir.FloatOf(tok.Value))

		case tok.Kind == lexer.Identifier:
			if local, ok := counter.Lookup(tok.Name); ok {
				stack.Push(local)
				continue
			}
			sig, ok := c.funcs[tok.Name]
			if !ok || sig.arity != 0 {
				return nil, ir.Operand{}, &CompileError{
					Code:    ErrCodeNameError,
					Message: fmt.Sprintf("undefined name %q", tok.Name),
					Name:    tok.Name,
					Line:    line,
				}
			}
			stack.Push(emit(ir.Double, ir.Call{Func: sig.symbol}))

		case tok.Kind.IsOperator():
			y, okY := stack.Pop()
			x, okX := stack.Pop()
			if !okX || !okY {
				return nil, ir.Operand{}, operandErr("operator %s needs two operands", tok)
			}
			op := ir.Binary{Op: binaryOps[tok.Kind], X: x.(ir.Operand), Y: y.(ir.Operand)}
			stack.Push(emit(ir.Double, op))

		case tok.Kind == lexer.Call:
			sig, ok := c.funcs[tok.Name]
			if !ok {
				return nil, ir.Operand{}, &CompileError{
					Code:    ErrCodeNameError,
					Message: fmt.Sprintf("call to undeclared function %q", tok.Name),
					Name:    tok.Name,
					Line:    line,
				}
			}
			if tok.Args != sig.arity {
				return nil, ir.Operand{}, &CompileError{
					Code:    ErrCodeArityError,
					Message: fmt.Sprintf("%q takes %d arguments, called with %d", tok.Name, sig.arity, tok.Args),
					Name:    tok.Name,
					Line:    line,
				}
			}
			if stack.Size() < sig.arity {
				return nil, ir.Operand{}, operandErr("call to %q is missing operands", tok.Name)
			}
			args := make([]ir.Arg, sig.arity)
			for i := sig.arity - 1; i >= 0; i-- {
				v, _ := stack.Pop()
				args[i] = ir.D(v.(ir.Operand))
			}
			stack.Push(emit(ir.Double, ir.Call{Func: sig.symbol, Args: args}))

		default:
			return nil, ir.Operand{}, &CompileError{
				Code:    ErrCodeInvalidToken,
				Message: fmt.Sprintf("unexpected token %s", tok),
				Line:    line,
			}
		}
	}

	if stack.Size() != 1 {
		return nil, ir.Operand{}, operandErr("expression leaves %d values, want 1", stack.Size())
	}
	result, _ := stack.Pop()
	return out, result.(ir.Operand), nil
}
