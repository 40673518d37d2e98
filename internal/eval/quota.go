package eval

import (
	"errors"
	"fmt"
)

// DefaultMaxCalls bounds the function calls of one evaluation.
//
// Recursion is impossible, but a chain of functions that each call the
// previous one twice doubles the work per link: thirty links already mean
// a billion calls.
const DefaultMaxCalls = 1_000_000

// callQuota counts function calls during one evaluation and enforces the
// limit.
type callQuota struct {
	maxCalls int // 0 disables the limit
	current  int
}

// Check counts a call to name and fails once the limit is passed.
func (q *callQuota) Check(name string) error {
	q.current++
	if q.maxCalls > 0 && q.current > q.maxCalls {
		return &CallsExceededError{
			Function: name,
			Calls:    q.current,
			Limit:    q.maxCalls,
		}
	}
	return nil
}

// Current returns the number of calls made so far.
func (q *callQuota) Current() int {
	return q.current
}

// CallsExceededError is returned when an evaluation makes more function
// calls than allowed. Evaluation stops at the call that passed the limit.
type CallsExceededError struct {
	Function string // callee that passed the limit
	Calls    int    // calls made, including the rejected one
	Limit    int
}

// Error implements the error interface.
func (e *CallsExceededError) Error() string {
	return fmt.Sprintf("call to %s exceeded the evaluation quota: %d calls > %d limit",
		e.Function, e.Calls, e.Limit)
}

// IsCallsExceededError returns true if the error is a CallsExceededError.
// Uses errors.As to handle wrapped errors.
func IsCallsExceededError(err error) bool {
	var ce *CallsExceededError
	return errors.As(err, &ce)
}
