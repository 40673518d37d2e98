// Package harness runs numerus conformance scenarios.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: hypotenuse
//	description: "Nested calls and exponentiation"
//	source: |
//	  sq(x) = x * x
//	  hyp(a, b) = (sq(a) + sq(b)) ^ 0.5
//	  hyp(3, 4)
//	print_results: true
//	target: arm64
//	expect:
//	  values: [5]
//	assertions:
//	  - type: ir_contains
//	    text: "call $pow(d %_3, d d_0.5)"
//	  - type: instruction_count
//	    function: hyp
//	    count: 4
//	  - type: stored_build
//	    expect: { target: arm64, print_results: true }
//
// A scenario that must fail names the error kind (driver.Kind) and the
// 1-based line instead:
//
//	expect:
//	  error: NAME_ERROR
//	  line: 2
//
// # Assertion Types
//
//   - ir_contains / ir_excludes: substring of the emitted IR
//   - instruction_count: instructions in one function ("main" for the entry)
//   - function_defined: a function exists, optionally with a parameter count
//   - postfix: postfix rendering of one source line
//   - stored_build: columns of the row recorded in the build history
//
// # Deterministic Testing
//
// Each scenario compiles into a fresh in-memory store with a fixed build id
// (scenario.build_id or testutil.DefaultBuildID) and a clock starting at 0,
// so snapshots are byte-identical across runs.
package harness
