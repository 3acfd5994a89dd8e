package visibility

import (
	"strings"
	"time"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
)

// absent evaluates an operator against a hidden field: only the operators that
// describe "nothing chosen" pass.
func absent(op model.Operator) bool {
	switch op {
	case model.OperatorEmpty, model.OperatorNotContains, model.OperatorNotEquals:
		return true
	default:
		return false
	}
}

func isSentinel(literal string) bool {
	return strings.EqualFold(strings.TrimSpace(literal), model.AnySentinel)
}

func apply(cond model.Condition, observed []value.Observed, multi bool, ectx model.EvaluationContext) bool {
	if multi {
		if ok, handled := applyMulti(cond, observed); handled {
			return ok
		}
	}
	var current value.Observed
	if len(observed) > 0 {
		current = observed[0]
	}
	return applySingle(cond, current, len(observed) > 0, ectx)
}

// applyMulti handles the membership operators for array-valued fields. Other
// operators fall through to single-valued semantics on the first value.
func applyMulti(cond model.Condition, observed []value.Observed) (bool, bool) {
	switch cond.Operator {
	case model.OperatorContains, model.OperatorEquals:
		if isSentinel(cond.Value) {
			return len(observed) > 0, true
		}
		return member(observed, cond.Value), true
	case model.OperatorNotContains, model.OperatorNotEquals:
		if isSentinel(cond.Value) {
			return len(observed) == 0, true
		}
		return !member(observed, cond.Value), true
	case model.OperatorEmpty:
		return len(observed) == 0, true
	case model.OperatorNotEmpty:
		return len(observed) > 0, true
	default:
		return false, false
	}
}

func member(observed []value.Observed, literal string) bool {
	for _, obs := range observed {
		if obs.Matches(literal) {
			return true
		}
	}
	return false
}

func applySingle(cond model.Condition, current value.Observed, present bool, ectx model.EvaluationContext) bool {
	switch cond.Operator {
	case model.OperatorEquals, model.OperatorContains:
		if isSentinel(cond.Value) {
			return true
		}
		if !present {
			return strings.TrimSpace(cond.Value) == ""
		}
		return current.Matches(cond.Value)
	case model.OperatorNotEquals, model.OperatorNotContains:
		if isSentinel(cond.Value) {
			return false
		}
		if !present {
			return strings.TrimSpace(cond.Value) != ""
		}
		return !current.Matches(cond.Value)
	case model.OperatorGreater, model.OperatorLess:
		want, ok := parseLiteral(cond.Value)
		if !present || !current.Numeric || !ok {
			return false
		}
		if cond.Operator == model.OperatorGreater {
			return current.Number > want
		}
		return current.Number < want
	case model.OperatorEmpty:
		return !present || len(strings.TrimSpace(current.Text)) == 0
	case model.OperatorNotEmpty:
		return present && len(strings.TrimSpace(current.Text)) > 0
	case model.OperatorDateEquals, model.OperatorDateNotEquals, model.OperatorDateGreater, model.OperatorDateLess:
		return applyDate(cond, current, present, ectx)
	default:
		return false
	}
}

func applyDate(cond model.Condition, current value.Observed, present bool, ectx model.EvaluationContext) bool {
	var (
		got, want     time.Time
		gotOK, wantOK bool
	)
	if present {
		got, gotOK = value.ParseDate(current.Text, ectx.Zone())
	}
	want, wantOK = value.ParseDate(cond.Value, ectx.Zone())
	if !gotOK || !wantOK {
		return cond.Operator == model.OperatorDateNotEquals && wantOK && !gotOK
	}
	switch cond.Operator {
	case model.OperatorDateEquals:
		return sameDay(got, want)
	case model.OperatorDateNotEquals:
		return !sameDay(got, want)
	case model.OperatorDateGreater:
		return got.After(want)
	default:
		return got.Before(want)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func parseLiteral(raw string) (float64, bool) {
	return value.TryNumber(raw)
}
