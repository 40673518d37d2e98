package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/numerus/internal/ir"
	"github.com/roach88/numerus/internal/lexer"
	"github.com/roach88/numerus/internal/store"
)

// validIdentifier matches valid SQL column names.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	IR       string // Emitted IR for context, if relevant
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.IR != "" {
		fmt.Fprintf(&buf, "\nIR:\n")
		for _, line := range strings.Split(strings.TrimRight(e.IR, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// assertIRContains checks that the IR contains (or, with negate, lacks)
// the assertion text.
func assertIRContains(result *Result, assertion Assertion, negate bool) error {
	found := strings.Contains(result.IR, assertion.Text)
	if found != negate {
		return nil
	}

	expected, actual := "IR containing "+assertion.Text, "not found"
	if negate {
		expected, actual = "IR without "+assertion.Text, "found"
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   actual,
		IR:       result.IR,
	}
}

func lookupFunction(result *Result, assertion Assertion) (*ir.Function, error) {
	fn, ok := result.Program.Lookup(assertion.Function)
	if !ok {
		return nil, &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("function $%s", assertion.Function),
			Actual:   "not defined",
			IR:       result.IR,
		}
	}
	return fn, nil
}

// assertInstructionCount checks the body length of one function.
func assertInstructionCount(result *Result, assertion Assertion) error {
	fn, err := lookupFunction(result, assertion)
	if err != nil {
		return err
	}

	if len(fn.Body) != *assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d instructions in $%s", *assertion.Count, fn.Name),
			Actual:   fmt.Sprintf("%d instructions", len(fn.Body)),
			IR:       result.IR,
		}
	}
	return nil
}

// assertFunctionDefined checks that a function exists and, when requested,
// its parameter count.
func assertFunctionDefined(result *Result, assertion Assertion) error {
	fn, err := lookupFunction(result, assertion)
	if err != nil {
		return err
	}

	if assertion.Params != nil && fn.Arity() != *assertion.Params {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("$%s with %d params", fn.Name, *assertion.Params),
			Actual:   fmt.Sprintf("%d params", fn.Arity()),
		}
	}
	return nil
}

// assertPostfix checks the postfix rendering of the statement on one line.
func assertPostfix(result *Result, assertion Assertion) error {
	for _, stmt := range result.Statements {
		if stmt.SourceLine() != assertion.Line-1 {
			continue
		}
		got := lexer.Join(stmt.Postfix())
		if got != assertion.Postfix {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("line %d postfix %q", assertion.Line, assertion.Postfix),
				Actual:   fmt.Sprintf("%q", got),
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("a statement on line %d", assertion.Line),
		Actual:   "blank or missing line",
	}
}

// assertStoredBuild checks columns of the build row recorded for the
// scenario, using parameterized SQL and validated column names.
func assertStoredBuild(ctx context.Context, st *store.Store, result *Result, assertion Assertion) error {
	if result.Build == nil {
		return fmt.Errorf("stored_build assertion requires a recorded build")
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		if !validIdentifier.MatchString(k) {
			return fmt.Errorf("invalid column name %q: must match pattern %s", k, validIdentifier.String())
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := fmt.Sprintf("SELECT %s FROM builds WHERE id = ?", strings.Join(keys, ", "))
	rows, err := st.Query(ctx, query, result.Build.ID)
	if err != nil {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("columns %s", strings.Join(keys, ", ")),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	if !rows.Next() {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("build %s", result.Build.ID),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(keys))
	valuePtrs := make([]interface{}, len(keys))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	for i, key := range keys {
		expected := assertion.Expect[key]
		if !columnValuesEqual(expected, values[i]) {
			return &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("column %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("column %q = %v (type %T)", key, values[i], values[i]),
			}
		}
	}

	return nil
}

// columnValuesEqual compares a YAML value with a SQLite column value.
// SQLite returns integers as int64, booleans as 0/1 and text as string or
// []byte.
func columnValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		act, ok := actual.(int64)
		return ok && int64(exp) == act
	case int64:
		act, ok := actual.(int64)
		return ok && exp == act
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		act, ok := actual.(int64)
		return ok && exp == (act != 0)
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against a successful result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_build assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertIRContains:
			err = assertIRContains(result, assertion, false)
		case AssertIRExcludes:
			err = assertIRContains(result, assertion, true)
		case AssertInstructionCount:
			err = assertInstructionCount(result, assertion)
		case AssertFunctionDefined:
			err = assertFunctionDefined(result, assertion)
		case AssertPostfix:
			err = assertPostfix(result, assertion)
		case AssertStoredBuild:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_build requires database context", i)
			} else {
				err = assertStoredBuild(actx.Ctx, actx.Store, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
