package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/driver"
	"github.com/roach88/numerus/internal/parser"
	"github.com/roach88/numerus/internal/store"
	"github.com/roach88/numerus/internal/testutil"
)

// compiledResult compiles source and records it like Run does.
func compiledResult(t *testing.T, source string) (*Result, *AssertionContext) {
	t.Helper()

	res, err := driver.Compile(source, compiler.Options{})
	require.NoError(t, err)
	stmts, err := parser.Parse(source)
	require.NoError(t, err)

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedBuildIDGenerator("")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b, err := store.NewBuild("t.num", source, res.Program, "rv64", "", false)
	require.NoError(t, err)
	b, err = st.RecordBuild(context.Background(), b)
	require.NoError(t, err)

	result := NewResult()
	result.Program = res.Program
	result.IR = res.IR
	result.Statements = stmts
	result.Build = &b
	return result, &AssertionContext{Store: st, Ctx: context.Background()}
}

func TestEvaluateAssertions(t *testing.T) {
	source := testutil.Source("sq(x) = x * x", "", "sq(2) + 1")
	result, actx := compiledResult(t, source)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"ir contains", Assertion{Type: AssertIRContains, Text: "call $sq(d d_2)"}, ""},
		{"ir contains missing", Assertion{Type: AssertIRContains, Text: "div"}, "IR containing div"},
		{"ir excludes", Assertion{Type: AssertIRExcludes, Text: "$pow("}, ""},
		{"ir excludes present", Assertion{Type: AssertIRExcludes, Text: "mul"}, "IR without mul"},
		{"count main", Assertion{Type: AssertInstructionCount, Function: "main", Count: intPtr(2)}, ""},
		{"count sq", Assertion{Type: AssertInstructionCount, Function: "sq", Count: intPtr(2)}, "2 instructions in $sq"},
		{"count unknown", Assertion{Type: AssertInstructionCount, Function: "nope", Count: intPtr(0)}, "not defined"},
		{"defined", Assertion{Type: AssertFunctionDefined, Function: "sq", Params: intPtr(1)}, ""},
		{"defined any arity", Assertion{Type: AssertFunctionDefined, Function: "sq"}, ""},
		{"defined wrong arity", Assertion{Type: AssertFunctionDefined, Function: "sq", Params: intPtr(2)}, "$sq with 2 params"},
		{"postfix", Assertion{Type: AssertPostfix, Line: 3, Postfix: "2 sq/1 1 +"}, ""},
		{"postfix mismatch", Assertion{Type: AssertPostfix, Line: 1, Postfix: "x x +"}, `"x x *"`},
		{"postfix blank line", Assertion{Type: AssertPostfix, Line: 2, Postfix: ""}, "blank or missing"},
		{"stored build", Assertion{Type: AssertStoredBuild, Expect: map[string]interface{}{"target": "rv64", "print_results": false, "seq": 1}}, ""},
		{"stored build mismatch", Assertion{Type: AssertStoredBuild, Expect: map[string]interface{}{"target": "arm64"}}, `column "target" = arm64`},
		{"stored build bad column", Assertion{Type: AssertStoredBuild, Expect: map[string]interface{}{"id; DROP TABLE builds": "x"}}, "invalid column name"},
		{"stored build unknown column", Assertion{Type: AssertStoredBuild, Expect: map[string]interface{}{"nope": "x"}}, "query error"},
		{"unknown type", Assertion{Type: "trace_order"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion}, actx)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_StoredBuildNeedsStore(t *testing.T) {
	result, _ := compiledResult(t, "1")
	errs := EvaluateAssertions(result, []Assertion{{Type: AssertStoredBuild, Expect: map[string]interface{}{"target": "rv64"}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires database context")
}

func TestAssertionError_IncludesIR(t *testing.T) {
	err := &AssertionError{Type: AssertIRContains, Expected: "x", Actual: "y", IR: "line one\nline two\n"}
	assert.Equal(t, "Assertion failed: ir_contains\n  Expected: x\n  Actual: y\n\nIR:\n  line one\n  line two\n", err.Error())
}

func TestColumnValuesEqual(t *testing.T) {
	assert.True(t, columnValuesEqual("a", []byte("a")))
	assert.True(t, columnValuesEqual(1, int64(1)))
	assert.True(t, columnValuesEqual(int64(1), int64(1)))
	assert.True(t, columnValuesEqual(true, int64(1)))
	assert.True(t, columnValuesEqual(false, int64(0)))
	assert.True(t, columnValuesEqual(nil, nil))
	assert.False(t, columnValuesEqual("1", int64(1)))
	assert.False(t, columnValuesEqual(nil, "x"))
}
