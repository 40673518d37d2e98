package compiler

import (
	"fmt"

	"github.com/roach88/numerus/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidEntry      = "E101" // main missing export, word return, or params
	ErrDuplicateFunction = "E102" // two functions share a symbol
	ErrReassigned        = "E103" // a register is written twice
	ErrUseBeforeDef      = "E104" // a register is read before it is written
	ErrUnknownCallee     = "E105" // call to a function neither defined nor linked
	ErrCallArity         = "E106" // call with the wrong number of arguments
	ErrCallCycle         = "E107" // recursion through the call graph
	ErrReservedFunction  = "E108" // a defined function shadows a runtime symbol
)

// ValidationError represents one violated program rule.
type ValidationError struct {
	Field   string `json:"field"` // "f.1", "f.1[2]", "main.return"
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// externals are the symbols every program links against, with their arity.
// A negative arity accepts that many fixed arguments or more.
var externals = map[string]int{
	ir.PowSymbol: 2,
	"printf":     -1,
}

// Validate checks the structural rules a program must satisfy before QBE
// sees it. It returns all violations found rather than stopping at the
// first. A program produced by Compile always validates.
//
// Rules:
//   - the entry is the exported word function main without parameters
//   - function symbols are unique and do not shadow runtime symbols
//   - every register is assigned once (SSA) and defined before it is read
//   - every callee is defined in the program or linked, with matching arity
//   - the call graph is acyclic
func Validate(p *ir.Program) []ValidationError {
	var errs []ValidationError

	entry := &p.Entry
	if entry.Name != ir.EntryName || !entry.Exported || entry.ReturnType != ir.Word || len(entry.Params) != 0 {
		errs = append(errs, ValidationError{
			Field:   entry.Name,
			Message: "entry must be the exported parameterless word function $main",
			Code:    ErrInvalidEntry,
		})
	}

	arity := make(map[string]int, len(p.Functions))
	for _, fn := range p.Functions {
		if _, dup := arity[fn.Name]; dup || fn.Name == entry.Name {
			errs = append(errs, ValidationError{
				Field:   fn.Name,
				Message: fmt.Sprintf("function $%s defined more than once", fn.Name),
				Code:    ErrDuplicateFunction,
			})
			continue
		}
		if _, ext := externals[fn.Name]; ext {
			errs = append(errs, ValidationError{
				Field:   fn.Name,
				Message: fmt.Sprintf("function $%s shadows a runtime symbol", fn.Name),
				Code:    ErrReservedFunction,
			})
		}
		arity[fn.Name] = fn.Arity()
	}

	errs = append(errs, validateFunction(entry, arity)...)
	for i := range p.Functions {
		errs = append(errs, validateFunction(&p.Functions[i], arity)...)
	}

	for _, cycle := range FindCallCycles(p) {
		errs = append(errs, ValidationError{
			Field:   cycle.Path[0],
			Message: cycle.Message,
			Code:    ErrCallCycle,
		})
	}

	return errs
}

func validateFunction(fn *ir.Function, arity map[string]int) []ValidationError {
	var errs []ValidationError
	defined := make(map[ir.Operand]bool, len(fn.Params)+len(fn.Body))

	for _, param := range fn.Params {
		if defined[param.Value] {
			errs = append(errs, ValidationError{
				Field:   fn.Name + ".params",
				Message: fmt.Sprintf("parameter %s declared twice", param.Value),
				Code:    ErrReassigned,
			})
		}
		defined[param.Value] = true
	}

	for i, in := range fn.Body {
		field := fmt.Sprintf("%s[%d]", fn.Name, i)

		for _, op := range in.Op.Operands() {
			if op.IsTemporary() && !defined[op] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s read before it is assigned", op),
					Code:    ErrUseBeforeDef,
				})
			}
		}

		if call, ok := in.Op.(ir.Call); ok {
			errs = append(errs, validateCall(field, call, arity)...)
		}

		if defined[in.Dest] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s assigned more than once", in.Dest),
				Code:    ErrReassigned,
			})
		}
		defined[in.Dest] = true
	}

	if fn.Return.IsTemporary() && !defined[fn.Return] {
		errs = append(errs, ValidationError{
			Field:   fn.Name + ".return",
			Message: fmt.Sprintf("returns %s, which is never assigned", fn.Return),
			Code:    ErrUseBeforeDef,
		})
	}

	return errs
}

func validateCall(field string, call ir.Call, arity map[string]int) []ValidationError {
	want, ok := arity[call.Func]
	if !ok {
		want, ok = externals[call.Func]
	}
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("call to unknown function $%s", call.Func),
			Code:    ErrUnknownCallee,
		}}
	}

	got := call.Arity()
	if (want >= 0 && got != want) || (want < 0 && got < -want) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("$%s called with %d arguments", call.Func, got),
			Code:    ErrCallArity,
		}}
	}
	return nil
}
