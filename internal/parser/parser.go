// Package parser splits numerus source into statements.
//
// Each non-blank line is one statement. A line containing "=" declares a
// function: the identifiers left of the first "=" are its name followed by
// its parameters, and the expression to the right is its body. Any other
// line is a top-level expression. Bodies are stored in postfix order, ready
// for the compiler.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/postfix"
)

// ErrInvalidAssignment is reported when the left side of "=" does not start
// with an identifier.
var ErrInvalidAssignment = errors.New("invalid assignment")

// Statement is a Declaration or an Expression.
type Statement interface {
	// SourceLine returns the 0-based line the statement came from.
	SourceLine() int
	// Postfix returns the statement body in postfix order.
	Postfix() []lexer.Token

	isStatement()
}

// Declaration defines a function of zero or more parameters.
type Declaration struct {
	Line   int
	Name   string
	Params []string
	Body   []lexer.Token
}

// Expression is a top-level expression evaluated by the entry function.
type Expression struct {
	Line int
	Body []lexer.Token
}

func (d *Declaration) SourceLine() int        { return d.Line }
func (d *Declaration) Postfix() []lexer.Token { return d.Body }
func (*Declaration) isStatement()             {}

func (e *Expression) SourceLine() int        { return e.Line }
func (e *Expression) Postfix() []lexer.Token { return e.Body }
func (*Expression) isStatement()             {}

// ParseError reports the first line that failed to parse.
type ParseError struct {
	Line int // 0-based
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line+1, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse builds one statement per non-blank line of source. It stops at the
// first line that fails and returns no statements in that case.
func Parse(source string) ([]Statement, error) {
	var stmts []Statement

	for i, line := range strings.Split(source, "\n") {
		line = strings.TrimSuffix(line, "\r")

		stmt, err := ParseLine(i, line)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, nil
}

// ParseLine builds the statement for a single line. A blank line yields a
// nil statement and no error.
func ParseLine(lineNo int, line string) (Statement, error) {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	assign := -1
	for i, tok := range tokens {
		if tok.Kind == lexer.Assign {
			assign = i
			break
		}
	}

	if assign < 0 {
		body, err := postfix.InfixToPostfix(tokens)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		return &Expression{Line: lineNo, Body: body}, nil
	}

	name, params, err := signature(tokens[:assign])
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	body, err := postfix.InfixToPostfix(tokens[assign+1:])
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}

	return &Declaration{Line: lineNo, Name: name, Params: params, Body: body}, nil
}

// signature extracts the declared name and parameter list from the tokens
// left of "=". Parentheses and commas are punctuation only; duplicates are
// kept so the compiler can report them.
func signature(lhs []lexer.Token) (string, []string, error) {
	if len(lhs) == 0 || lhs[0].Kind != lexer.Identifier {
		return "", nil, ErrInvalidAssignment
	}

	params := []string{}
	for _, tok := range lhs[1:] {
		if tok.Kind == lexer.Identifier {
			params = append(params, tok.Name)
		}
	}
	return lhs[0].Name, params, nil
}
