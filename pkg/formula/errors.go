package formula

import (
	"errors"
	"fmt"
)

// Reason classifies why a formula did not produce a number.
type Reason string

const (
	ReasonSyntax          Reason = "syntax"
	ReasonUnknownFunction Reason = "unknown_function"
	ReasonArity           Reason = "arity"
	ReasonArgument        Reason = "argument"
	ReasonUnresolved      Reason = "unresolved_variable"
	ReasonNotNumeric      Reason = "not_numeric"
	ReasonNotFinite       Reason = "not_finite"
	ReasonRuntime         Reason = "runtime"
)

var errEmpty = errors.New("empty formula")

// EvaluationError reports a formula that failed to parse, type check or run.
// The pricing layer maps it to "no value".
type EvaluationError struct {
	Expression string
	Reason     Reason
	Position   int
	Err        error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("formula: %s", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Expression != "" {
		msg += fmt.Sprintf(" (in %q)", e.Expression)
	}
	return msg
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsEvaluationError reports whether err wraps an EvaluationError and returns it.
func IsEvaluationError(err error) (*EvaluationError, bool) {
	var target *EvaluationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func syntaxError(expression string, pos int, msg string) error {
	return &EvaluationError{
		Expression: expression,
		Reason:     ReasonSyntax,
		Position:   pos,
		Err:        fmt.Errorf("at %d: %s", pos, msg),
	}
}

func argumentError(reason Reason, format string, args ...any) error {
	return &EvaluationError{Reason: reason, Err: fmt.Errorf(format, args...)}
}
