package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/driver"
)

// Exit codes for CLI commands.
const (
	ExitSuccess        = 0 // Successful execution
	ExitFailure        = 1 // Test failure (scenarios failed, golden mismatch)
	ExitCommandError   = 2 // Command or compile error (bad source, invalid paths, toolchain failure)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Invalid configuration
	ErrCodeStore       = "E009" // Build history unavailable
	ErrCodeToolchain   = "E010" // qbe or cc failed
	ErrCodeEvalLimit   = "E011" // Evaluation exceeded its call budget

	ErrCodeCompile = "E200" // Compile error of an unknown kind
)

// compileErrorCodes gives every compile failure kind a stable code.
var compileErrorCodes = map[driver.Kind]string{
	driver.KindInvalidCharacter:                     "E201",
	driver.KindInvalidNumber:                        "E202",
	driver.KindInvalidAssignment:                    "E203",
	driver.KindMismatchedParen:                      "E204",
	driver.KindMisplacedComma:                       "E205",
	driver.KindUnexpectedToken:                      "E206",
	driver.Kind(compiler.ErrCodeInvalidToken):       "E207",
	driver.Kind(compiler.ErrCodeOperandError):       "E208",
	driver.Kind(compiler.ErrCodeNameError):          "E209",
	driver.Kind(compiler.ErrCodeArityError):         "E210",
	driver.Kind(compiler.ErrCodeDuplicateParameter): "E211",
	driver.Kind(compiler.ErrCodeReservedName):       "E212",
	driver.KindInvalidProgram:                       "E220",
}

// CompileErrorCode returns the response code for a compile failure kind.
func CompileErrorCode(kind driver.Kind) string {
	if code, ok := compileErrorCodes[kind]; ok {
		return code
	}
	return ErrCodeCompile
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the user.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`            // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
	BuildID string      `json:"build_id,omitempty"` // recorded build, if any
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E209", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports an error in the configured format and returns an ExitError
// with exitCode, so main does not print it a second time.
func (f *OutputFormatter) Fail(exitCode int, code, message string, details interface{}, err error) error {
	if outErr := f.Error(code, message, details); outErr != nil {
		return outErr
	}
	return &ExitError{Code: exitCode, Message: message, Err: err, Reported: true}
}

// CompileFailure reports a failed compile of path, classified by kind.
func (f *OutputFormatter) CompileFailure(path string, err error) error {
	kind, line := driver.Classify(err)
	details := map[string]interface{}{
		"file": path,
		"kind": string(kind),
		"line": line,
	}
	return f.Fail(ExitCommandError, CompileErrorCode(kind), fmt.Sprintf("%s: %v", path, err), details, err)
}

// encodeIndented writes v as indented JSON, for multi-item reports.
func encodeIndented(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
