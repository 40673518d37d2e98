package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/numerus/internal/backend"
	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/driver"
	"github.com/roach88/numerus/internal/eval"
	"github.com/roach88/numerus/internal/parser"
	"github.com/roach88/numerus/internal/store"
	"github.com/roach88/numerus/internal/testutil"
)

// valueTolerance bounds the relative difference between an expected and an
// interpreted value.
const valueTolerance = 1e-9

// Harness runs one scenario against its own store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Compile the source with the scenario's options
//  2. Check an expected error, or record the build
//  3. Interpret the program when values are expected
//  4. Evaluate assertions
//
// A non-nil error means the harness itself failed; scenario mismatches are
// reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedBuildIDGenerator(scenario.BuildID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	expect := scenario.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	res, err := driver.Compile(scenario.Source, compiler.Options{PrintResults: scenario.PrintResults})
	if err != nil {
		result.ErrorKind, result.ErrorLine = driver.Classify(err)
		h.logger.Info("scenario failed to compile",
			"scenario", scenario.Name,
			"kind", result.ErrorKind,
			"line", result.ErrorLine,
		)
		checkExpectedError(result, expect, err)
		return result, nil
	}

	if expect.Error != "" {
		result.AddError(fmt.Sprintf("expected %s error, but the source compiled", expect.Error))
		return result, nil
	}

	result.Program = res.Program
	result.IR = res.IR

	// The driver already parsed this source successfully.
	result.Statements, err = parser.Parse(scenario.Source)
	if err != nil {
		return nil, fmt.Errorf("reparse source: %w", err)
	}

	target := scenario.Target
	if target == "" {
		target = string(backend.DefaultTarget)
	}
	b, err := store.NewBuild(scenario.Name+".num", scenario.Source, res.Program, target, "", scenario.PrintResults)
	if err != nil {
		return nil, err
	}
	recorded, err := h.store.RecordBuild(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}
	result.Build = &recorded

	h.logger.Info("scenario compiled",
		"scenario", scenario.Name,
		"build_id", recorded.ID,
		"instructions", res.Program.InstructionCount(),
	)

	if expect.Values != nil {
		values, err := eval.Eval(scenario.Source)
		if err != nil {
			result.AddError(fmt.Sprintf("interpreter failed: %v", err))
		} else {
			result.Values = values
			checkValues(result, expect.Values, values)
		}
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func checkExpectedError(result *Result, expect *ExpectClause, err error) {
	if expect.Error == "" {
		result.AddError(fmt.Sprintf("compile failed: %v", err))
		return
	}
	if string(result.ErrorKind) != expect.Error {
		result.AddError(fmt.Sprintf("expected %s error, got %s: %v", expect.Error, result.ErrorKind, err))
	}
	if expect.Line > 0 && result.ErrorLine != expect.Line {
		result.AddError(fmt.Sprintf("expected error on line %d, got line %d", expect.Line, result.ErrorLine))
	}
}

func checkValues(result *Result, want, got []float64) {
	if len(want) != len(got) {
		result.AddError(fmt.Sprintf("expected %d values, got %d: %v", len(want), len(got), got))
		return
	}
	for i := range want {
		if !closeEnough(want[i], got[i]) {
			result.AddError(fmt.Sprintf("value[%d]: expected %v, got %v", i, want[i], got[i]))
		}
	}
}

func closeEnough(want, got float64) bool {
	if math.IsNaN(want) || math.IsNaN(got) {
		return math.IsNaN(want) && math.IsNaN(got)
	}
	if want == got {
		return true
	}
	return math.Abs(want-got) <= valueTolerance*math.Max(1, math.Abs(want))
}
