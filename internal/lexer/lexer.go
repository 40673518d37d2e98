// Package lexer turns one line of numerus source into tokens.
package lexer

import (
	"errors"
	"fmt"
	"strconv"
)

// Error kinds reported by Tokenize. Match them with errors.Is.
var (
	ErrInvalidCharacter     = errors.New("invalid character")
	ErrInvalidNumberLiteral = errors.New("invalid number literal")
)

// Error describes the first lexing failure on a line.
type Error struct {
	Kind   error  // ErrInvalidCharacter or ErrInvalidNumberLiteral
	Column int    // 0-based rune offset of the offending token
	Char   rune   // the rejected character (ErrInvalidCharacter)
	Text   string // the rejected literal (ErrInvalidNumberLiteral)
	Err    error  // underlying strconv failure, if any
}

func (e *Error) Error() string {
	if e.Kind == ErrInvalidNumberLiteral {
		return fmt.Sprintf("column %d: failed to parse float literal %q", e.Column+1, e.Text)
	}
	return fmt.Sprintf("column %d: found invalid character %q", e.Column+1, e.Char)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// scanner holds the state of a single pass over one line.
type scanner struct {
	src []rune
	pos int // index of the next rune to consume
}

// peek returns the next rune without consuming it, or 0 at end of line.
func (s *scanner) peek() rune {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) advance() rune {
	r := s.src[s.pos]
	s.pos++
	return r
}

// Tokenize scans line left to right with one rune of lookahead and returns
// its tokens in source order. It stops at the first character that cannot
// begin a token, or at the first numeric literal that does not parse.
func Tokenize(line string) ([]Token, error) {
	s := &scanner{src: []rune(line)}
	var tokens []Token

	for s.pos < len(s.src) {
		start := s.pos
		r := s.advance()

		switch {
		case r == ' ' || r == '\t':
			continue
		case isDigit(r) || r == '.':
			tok, err := s.scanNumber(start)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case isIdentStart(r):
			tokens = append(tokens, s.scanIdent(start))
		default:
			kind, ok := symbolKind(r)
			if !ok {
				return nil, &Error{Kind: ErrInvalidCharacter, Column: start, Char: r}
			}
			tokens = append(tokens, Sym(kind))
		}
	}

	return tokens, nil
}

// scanNumber consumes the rest of a numeric literal whose first rune is
// already consumed and starts at start.
func (s *scanner) scanNumber(start int) (Token, error) {
	for r := s.peek(); isDigit(r) || r == '.'; r = s.peek() {
		s.advance()
	}
	text := string(s.src[start:s.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, &Error{Kind: ErrInvalidNumberLiteral, Column: start, Text: text, Err: err}
	}
	return Num(v), nil
}

// scanIdent consumes the rest of an identifier whose first rune is already
// consumed and starts at start.
func (s *scanner) scanIdent(start int) Token {
	for r := s.peek(); isIdentStart(r) || isDigit(r); r = s.peek() {
		s.advance()
	}
	return Ident(string(s.src[start:s.pos]))
}

func symbolKind(r rune) (Kind, bool) {
	switch r {
	case '+':
		return Add, true
	case '-':
		return Subtract, true
	case '*':
		return Multiply, true
	case '/':
		return Divide, true
	case '^':
		return Exponent, true
	case '=':
		return Assign, true
	case ',':
		return Comma, true
	case '(':
		return OpenParen, true
	case ')':
		return CloseParen, true
	}
	return Invalid, false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isIdentStart accepts ASCII letters and underscore. Identifiers end up as
// QBE symbol names, so non-ASCII letters are rejected.
func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
