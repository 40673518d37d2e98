package harness

import (
	"github.com/roach88/numerus/internal/driver"
	"github.com/roach88/numerus/internal/ir"
	"github.com/roach88/numerus/internal/parser"
	"github.com/roach88/numerus/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the outcome and every assertion matched.
	Pass bool

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string

	// ErrorKind and ErrorLine classify a failed compile.
	ErrorKind driver.Kind
	ErrorLine int

	// The remaining fields are set only for a successful compile.
	Program    *ir.Program
	IR         string
	Statements []parser.Statement
	Values     []float64
	Build      *store.Build
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Compiled reports whether the scenario source compiled.
func (r *Result) Compiled() bool {
	return r.Program != nil
}
