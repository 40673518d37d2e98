package lexer

import (
	"strconv"
	"strings"
)

// Kind identifies the category of a token.
type Kind int

const (
	Invalid Kind = iota // zero value, never produced

	// Arithmetic operators
	Add      // +
	Subtract // -
	Multiply // *
	Divide   // /
	Exponent // ^

	// Structural symbols
	Assign     // =
	OpenParen  // (
	CloseParen // )
	Comma      // ,

	// Leaves
	Identifier // variable or function name
	Number     // float64 literal

	// Call marks a function invocation in postfix output. Only the postfix
	// converter produces it; it replaces the identifier that named the callee.
	Call
)

var kindNames = [...]string{
	Invalid:    "Invalid",
	Add:        "Add",
	Subtract:   "Subtract",
	Multiply:   "Multiply",
	Divide:     "Divide",
	Exponent:   "Exponent",
	Assign:     "Assign",
	OpenParen:  "OpenParen",
	CloseParen: "CloseParen",
	Comma:      "Comma",
	Identifier: "Identifier",
	Number:     "Number",
	Call:       "Call",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// IsOperator reports whether k is one of the five arithmetic operators.
func (k Kind) IsOperator() bool {
	return k >= Add && k <= Exponent
}

// Token is a single lexical unit. Tokens are plain values: two tokens are
// equal when all their fields are equal.
type Token struct {
	Kind  Kind
	Name  string  // Identifier and Call
	Value float64 // Number
	Args  int     // Call: number of arguments at the call site
}

// Sym returns the payload-free token of the given kind.
func Sym(k Kind) Token {
	return Token{Kind: k}
}

// Ident returns an Identifier token.
func Ident(name string) Token {
	return Token{Kind: Identifier, Name: name}
}

// Num returns a Number token.
func Num(v float64) Token {
	return Token{Kind: Number, Value: v}
}

// CallOf returns a call-head marker for name invoked with args arguments.
func CallOf(name string, args int) Token {
	return Token{Kind: Call, Name: name, Args: args}
}

// String renders the token as it would appear in source, except for call
// markers which render as name/arity.
func (t Token) String() string {
	switch t.Kind {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Exponent:
		return "^"
	case Assign:
		return "="
	case OpenParen:
		return "("
	case CloseParen:
		return ")"
	case Comma:
		return ","
	case Identifier:
		return t.Name
	case Number:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case Call:
		return t.Name + "/" + strconv.Itoa(t.Args)
	default:
		return t.Kind.String()
	}
}

// Join renders a token sequence separated by single spaces.
func Join(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}
