// Package postfix converts infix token streams to Reverse Polish order.
//
// The conversion is Dijkstra's shunting-yard algorithm with one extension:
// an identifier immediately followed by an open parenthesis is a call head.
// Its marker waits on the operator stack beneath the argument list and is
// emitted, as a lexer.Call token carrying the argument count, once the
// matching close parenthesis has flushed every argument.
package postfix

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/stacks/linkedliststack"

	"github.com/roach88/numerus/internal/lexer"
)

// Conversion failures. Match them with errors.Is.
var (
	ErrMismatchedParen = errors.New("mismatched parenthesis")
	ErrMisplacedComma  = errors.New("misplaced comma")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// Precedence returns the binding strength of a token kind. Structural
// tokens share the lowest level so they never cause pops by comparison.
func Precedence(k lexer.Kind) int {
	switch k {
	case lexer.Add, lexer.Subtract:
		return 2
	case lexer.Multiply, lexer.Divide:
		return 3
	case lexer.Exponent:
		return 4
	default:
		return 1
	}
}

// LeftAssociative reports whether equal-precedence chains of k group to the
// left. Only exponentiation groups to the right.
func LeftAssociative(k lexer.Kind) bool {
	return k != lexer.Exponent
}

// entry is an operator-stack element. Open parentheses carry the bookkeeping
// needed to count the arguments of the call they may belong to.
type entry struct {
	tok      lexer.Token
	call     bool // open paren that starts a call's argument list
	commas   int  // commas seen directly inside this paren
	hasArg   bool // any token seen directly inside this paren
	argEmpty bool // nothing seen since the paren or the last comma
}

// InfixToPostfix reorders tokens so that every operator and call marker
// follows all of its operands. Operands keep their source order.
func InfixToPostfix(tokens []lexer.Token) ([]lexer.Token, error) {
	output := make([]lexer.Token, 0, len(tokens))
	stack := linkedliststack.New()
	var parens []*entry // open parens currently on the stack, innermost last

	// touch records that the innermost argument list has content.
	touch := func() {
		if len(parens) > 0 {
			p := parens[len(parens)-1]
			p.hasArg = true
			p.argEmpty = false
		}
	}

	// popUntilParen flushes operators down to, but not including, the
	// nearest open paren and returns that paren (nil if there is none).
	popUntilParen := func() *entry {
		for {
			top, ok := stack.Peek()
			if !ok {
				return nil
			}
			e := top.(*entry)
			if e.tok.Kind == lexer.OpenParen {
				return e
			}
			stack.Pop()
			output = append(output, e.tok)
		}
	}

	callPending := false // a call marker was just pushed; the next token is its "("

	for i, tok := range tokens {
		switch {
		case tok.Kind == lexer.OpenParen:
			touch()
			e := &entry{tok: tok, call: callPending, argEmpty: true}
			callPending = false
			stack.Push(e)
			parens = append(parens, e)

		case tok.Kind == lexer.CloseParen:
			open := popUntilParen()
			if open == nil {
				return nil, fmt.Errorf("%w: unmatched ')' at token %d", ErrMismatchedParen, i)
			}
			if open.call && open.commas > 0 && open.argEmpty {
				return nil, fmt.Errorf("%w: empty argument before ')' at token %d", ErrMisplacedComma, i)
			}
			stack.Pop()
			parens = parens[:len(parens)-1]

			if top, ok := stack.Peek(); ok && top.(*entry).tok.Kind == lexer.Call {
				stack.Pop()
				marker := top.(*entry).tok
				if open.hasArg {
					marker.Args = open.commas + 1
				}
				output = append(output, marker)
			}

		case tok.Kind == lexer.Comma:
			open := popUntilParen()
			if open == nil || !open.call {
				return nil, fmt.Errorf("%w at token %d", ErrMisplacedComma, i)
			}
			if open.argEmpty {
				return nil, fmt.Errorf("%w: empty argument at token %d", ErrMisplacedComma, i)
			}
			open.commas++
			open.argEmpty = true

		case tok.Kind == lexer.Identifier && i+1 < len(tokens) && tokens[i+1].Kind == lexer.OpenParen:
			touch()
			stack.Push(&entry{tok: lexer.CallOf(tok.Name, 0)})
			callPending = true

		case tok.Kind == lexer.Identifier || tok.Kind == lexer.Number:
			touch()
			output = append(output, tok)

		case tok.Kind.IsOperator():
			touch()
			for {
				top, ok := stack.Peek()
				if !ok {
					break
				}
				e := top.(*entry)
				if e.tok.Kind == lexer.OpenParen {
					break
				}
				topPrec, curPrec := Precedence(e.tok.Kind), Precedence(tok.Kind)
				if topPrec > curPrec || (topPrec >= curPrec && LeftAssociative(tok.Kind)) {
					stack.Pop()
					output = append(output, e.tok)
					continue
				}
				break
			}
			stack.Push(&entry{tok: tok})

		default:
			return nil, fmt.Errorf("%w %q at token %d", ErrUnexpectedToken, tok.String(), i)
		}
	}

	for !stack.Empty() {
		top, _ := stack.Pop()
		e := top.(*entry)
		if e.tok.Kind == lexer.OpenParen {
			return nil, fmt.Errorf("%w: unclosed '('", ErrMismatchedParen)
		}
		output = append(output, e.tok)
	}

	return output, nil
}
