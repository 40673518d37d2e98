package compiler

import (
	"errors"
	"fmt"
)

// CompileError is a failure lowering a statement to IR.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the offending identifier, if any.
	Name string

	// Line is the 0-based source line of the statement.
	Line int
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeInvalidToken indicates a token that cannot appear in a body.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// ErrCodeOperandError indicates an operator or call without enough
	// operands, or a body that leaves other than one value.
	ErrCodeOperandError ErrorCode = "OPERAND_ERROR"

	// ErrCodeNameError indicates a reference to an undeclared name.
	ErrCodeNameError ErrorCode = "NAME_ERROR"

	// ErrCodeArityError indicates a call with the wrong number of arguments.
	ErrCodeArityError ErrorCode = "ARITY_ERROR"

	// ErrCodeDuplicateParameter indicates a parameter listed twice.
	ErrCodeDuplicateParameter ErrorCode = "DUPLICATE_PARAMETER"

	// ErrCodeReservedName indicates a declaration of a runtime symbol.
	ErrCodeReservedName ErrorCode = "RESERVED_NAME"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s (line %d)", e.Code, e.Message, e.Line+1)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsNameError returns true if err is an undeclared-name error.
func IsNameError(err error) bool { return hasCode(err, ErrCodeNameError) }

// IsArityError returns true if err is an argument-count mismatch.
func IsArityError(err error) bool { return hasCode(err, ErrCodeArityError) }

// IsOperandError returns true if err is an operand-count error.
func IsOperandError(err error) bool { return hasCode(err, ErrCodeOperandError) }

// IsInvalidToken returns true if err reports a token the compiler rejects.
func IsInvalidToken(err error) bool { return hasCode(err, ErrCodeInvalidToken) }

// IsDuplicateParameter returns true if err reports a repeated parameter.
func IsDuplicateParameter(err error) bool { return hasCode(err, ErrCodeDuplicateParameter) }

// IsReservedName returns true if err reports a declaration of a reserved name.
func IsReservedName(err error) bool { return hasCode(err, ErrCodeReservedName) }
