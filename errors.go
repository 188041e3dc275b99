package symkern

import (
	"errors"
	"fmt"
)

var (
	// ErrIterationLimit reports a rewrite that did not reach a fixpoint
	// within the configured iteration, recursion or step limits.
	ErrIterationLimit = errors.New("symkern: iteration limit exceeded")
	// ErrTimeout reports a rewrite stopped by its context.
	ErrTimeout = errors.New("symkern: evaluation timed out")

	ErrNotFactorable  = errors.New("symkern: polynomial could not be factored")
	ErrDivisionByZero = errors.New("symkern: polynomial division by zero")

	// errNeedsComplex is returned by a real numeric entry whose result
	// lies off the real line.
	errNeedsComplex = errors.New("symkern: result needs a complex domain")
)

// DomainError is returned when a numeric function is asked for a value at a
// pole or outside its domain.
type DomainError struct {
	Func string
	Msg  string
}

func (e *DomainError) Error() string { return fmt.Sprintf("%s: %s", e.Func, e.Msg) }

func domainErrorf(fn, format string, args ...interface{}) *DomainError {
	return &DomainError{Func: fn, Msg: fmt.Sprintf(format, args...)}
}

// AbortError is returned by Rewrite when evaluation stopped before a
// fixpoint. Partial holds the best expression reached so far.
type AbortError struct {
	Limit   string // "iteration", "recursion", "steps", "match" or "time"
	Head    string
	Partial Expr
	Err     error
	cause   error
}

func (e *AbortError) Error() string {
	if e.Head != "" {
		return fmt.Sprintf("%v (%s limit at %s)", e.Err, e.Limit, e.Head)
	}
	return fmt.Sprintf("%v (%s limit)", e.Err, e.Limit)
}

func (e *AbortError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// ArithmeticError wraps a failure of the polynomial arithmetic collaborator.
type ArithmeticError struct {
	Op  string
	Err error
}

func (e *ArithmeticError) Error() string { return fmt.Sprintf("poly %s: %v", e.Op, e.Err) }
func (e *ArithmeticError) Unwrap() error { return e.Err }
