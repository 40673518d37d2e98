package driver

import (
	"errors"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/parser"
	"github.com/roach88/numerus/internal/postfix"
)

// Kind names a category of compile failure. Compiler errors use their
// compiler.ErrorCode verbatim.
type Kind string

const (
	KindInvalidCharacter  Kind = "INVALID_CHARACTER"
	KindInvalidNumber     Kind = "INVALID_NUMBER_LITERAL"
	KindInvalidAssignment Kind = "INVALID_ASSIGNMENT"
	KindMismatchedParen   Kind = "MISMATCHED_PAREN"
	KindMisplacedComma    Kind = "MISPLACED_COMMA"
	KindUnexpectedToken   Kind = "UNEXPECTED_TOKEN"
	KindInvalidProgram    Kind = "INVALID_PROGRAM"
	KindUnknown           Kind = "UNKNOWN"
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{lexer.ErrInvalidCharacter, KindInvalidCharacter},
	{lexer.ErrInvalidNumberLiteral, KindInvalidNumber},
	{parser.ErrInvalidAssignment, KindInvalidAssignment},
	{postfix.ErrMismatchedParen, KindMismatchedParen},
	{postfix.ErrMisplacedComma, KindMisplacedComma},
	{postfix.ErrUnexpectedToken, KindUnexpectedToken},
}

// Classify reports the kind of a Compile error and the 1-based source line
// it was found on. line is 0 when the error is not tied to a line.
func Classify(err error) (kind Kind, line int) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		line = pe.Line + 1
	}

	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return Kind(ce.Code), ce.Line + 1
	}

	var ipe *InvalidProgramError
	if errors.As(err, &ipe) {
		return KindInvalidProgram, 0
	}

	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind, line
		}
	}
	return KindUnknown, line
}
