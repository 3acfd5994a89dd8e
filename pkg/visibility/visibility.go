package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
)

// ErrUnknownOption is returned when a decision is requested for an option the
// group does not define.
var ErrUnknownOption = errors.New("visibility: unknown option")

// Decider determines whether an option is shown for a submission.
type Decider interface {
	Decide(ctx context.Context, optionID string, sub model.Submission, ectx model.EvaluationContext) (bool, error)
}

// DeciderFunc adapts a function into a Decider.
type DeciderFunc func(ctx context.Context, optionID string, sub model.Submission, ectx model.EvaluationContext) (bool, error)

// Decide delegates to the underlying function.
func (fn DeciderFunc) Decide(ctx context.Context, optionID string, sub model.Submission, ectx model.EvaluationContext) (bool, error) {
	return fn(ctx, optionID, sub, ectx)
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for cycle-guard diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Evaluator decides option visibility from each option's conditional logic.
// It keeps no state between calls; every decision is recomputed from the
// submission.
type Evaluator struct {
	group    model.Group
	resolver *value.Resolver
	logger   *slog.Logger
}

// New returns an Evaluator over the options of group. A nil resolver uses the
// built-in value kinds.
func New(group model.Group, resolver *value.Resolver, options ...Option) *Evaluator {
	if resolver == nil {
		resolver = value.NewResolver()
	}
	e := &Evaluator{
		group:    group,
		resolver: resolver,
		logger:   slog.Default().With("component", "visibility"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Decide reports whether optionID is visible.
func (e *Evaluator) Decide(ctx context.Context, optionID string, sub model.Submission, ectx model.EvaluationContext) (bool, error) {
	opt, ok := e.group.Option(optionID)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownOption, optionID)
	}
	return e.decide(ctx, opt, sub, ectx, "", nil), nil
}

// Map rebuilds the show/hide state of every option in the group.
func (e *Evaluator) Map(ctx context.Context, sub model.Submission, ectx model.EvaluationContext) map[string]bool {
	out := make(map[string]bool, len(e.group.Options))
	for _, opt := range e.group.Options {
		out[opt.ID] = e.decide(ctx, opt, sub, ectx, "", nil)
	}
	return out
}

// frame identifies one recursive decision: the option being decided and the
// caller whose conditions are excluded.
type frame struct {
	option  string
	exclude string
}

func (e *Evaluator) decide(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext, exclude string, stack []frame) bool {
	logic := opt.ConditionalLogic
	if logic == nil || len(logic.Conditions) == 0 {
		return true
	}
	stack = append(stack, frame{option: opt.ID, exclude: exclude})

	results := make([]bool, 0, len(logic.Conditions))
	for _, cond := range logic.Conditions {
		if exclude != "" && cond.OptionID == exclude {
			continue
		}
		results = append(results, e.condition(ctx, opt, cond, sub, ectx, stack))
	}

	met := combine(logic.Relation, results)
	if logic.Visibility == model.VisibilityHide {
		return !met
	}
	return met
}

func (e *Evaluator) condition(ctx context.Context, owner model.Option, cond model.Condition, sub model.Submission, ectx model.EvaluationContext, stack []frame) bool {
	if model.IsItemProperty(cond.OptionID) {
		_, multi := model.AttributeName(cond.OptionID)
		return apply(cond, value.ObserveProperty(cond.OptionID, sub, ectx), multi, ectx)
	}

	ref, ok := e.group.Option(cond.OptionID)
	if !ok {
		e.logger.Debug("condition references unknown option",
			"option", owner.ID, "reference", cond.OptionID)
		return absent(cond.Operator)
	}

	next := frame{option: ref.ID, exclude: owner.ID}
	visible := true
	if onStack(stack, next) {
		e.logger.Debug("visibility cycle detected, reading value without resolving visibility",
			"option", owner.ID, "reference", ref.ID, "depth", len(stack))
	} else {
		visible = e.decide(ctx, ref, sub, ectx, owner.ID, stack)
	}
	if !visible {
		return absent(cond.Operator)
	}
	return apply(cond, e.resolver.Observe(ctx, ref, sub, ectx), ref.MultiValued(), ectx)
}

func onStack(stack []frame, f frame) bool {
	for _, existing := range stack {
		if existing == f {
			return true
		}
	}
	return false
}

// combine applies the relation; an empty AND holds, an empty OR does not.
func combine(relation model.Relation, results []bool) bool {
	if relation == model.RelationOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}
