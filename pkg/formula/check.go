package formula

import (
	"errors"
	"fmt"
	"slices"
)

// Check validates a formula at authoring time without evaluating it. It reports
// syntax errors, unknown functions, arity violations, non-literal or unknown
// compare operators and references to variables missing from known. Names in
// known are matched case-insensitively.
func Check(expression string, known []string) []error {
	prg, err := Parse(expression)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, call := range prg.calls() {
		fn, ok := library[call.name]
		if !ok {
			errs = append(errs, &EvaluationError{
				Expression: expression,
				Reason:     ReasonUnknownFunction,
				Position:   call.pos,
				Err:        fmt.Errorf("unknown function %q", call.name),
			})
			continue
		}
		if err := fn.checkArity(call.name, len(call.args)); err != nil {
			errs = append(errs, withExpression(err, expression, call.pos))
			continue
		}
		if call.name == "compare" && len(call.args) == 3 {
			op, isLiteral := call.args[2].(stringNode)
			if !isLiteral || !slices.Contains(CompareOperators, op.value) {
				errs = append(errs, &EvaluationError{
					Expression: expression,
					Reason:     ReasonArgument,
					Position:   call.pos,
					Err:        fmt.Errorf("compare operator must be one of %v", CompareOperators),
				})
			}
		}
		if call.name == "productmeta" {
			if _, isLiteral := call.args[0].(stringNode); !isLiteral {
				errs = append(errs, &EvaluationError{
					Expression: expression,
					Reason:     ReasonArgument,
					Position:   call.pos,
					Err:        errors.New("productMeta key must be a string literal"),
				})
			}
		}
	}

	bound := make(map[string]bool, len(known))
	for _, name := range known {
		bound[normalizeName(name)] = true
	}
	for _, ref := range prg.References() {
		if !bound[ref] {
			errs = append(errs, &EvaluationError{
				Expression: expression,
				Reason:     ReasonUnresolved,
				Err:        fmt.Errorf("variable [%s] is not declared", ref),
			})
		}
	}
	return errs
}
