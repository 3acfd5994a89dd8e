package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/binding"
	"github.com/goliatone/go-productoptions/pkg/formula"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
	"github.com/goliatone/go-productoptions/pkg/visibility"
)

var (
	// ErrUnknownOption is returned for option ids the group does not define.
	ErrUnknownOption = errors.New("pricing: unknown option")
	// ErrDisabled is returned for formula options disabled by definition errors.
	ErrDisabled = errors.New("pricing: option disabled by definition errors")
)

const defaultPriceDecimals = 2

// Option customises a Calculator.
type Option func(*Calculator)

// WithEngine shares a formula engine (and its compiled-program cache).
func WithEngine(engine *formula.Engine) Option {
	return func(c *Calculator) {
		if engine != nil {
			c.engine = engine
		}
	}
}

// WithLogger sets the logger used by the calculator and the engines it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPriceDecimals sets the number of decimals breakdown totals round to.
func WithPriceDecimals(decimals int) Option {
	return func(c *Calculator) {
		if decimals >= 0 {
			c.decimals = int32(decimals)
		}
	}
}

// WithDisabled marks formula options that must not contribute to any price,
// typically validation.Result.Disabled().
func WithDisabled(optionIDs ...string) Option {
	return func(c *Calculator) {
		for _, id := range optionIDs {
			if c.disabled == nil {
				c.disabled = make(map[string]bool, len(optionIDs))
			}
			c.disabled[id] = true
		}
	}
}

// WithResolverOptions forwards options to the value resolver, for example to
// register a custom option kind.
func WithResolverOptions(options ...value.ResolverOption) Option {
	return func(c *Calculator) {
		c.resolverOptions = append(c.resolverOptions, options...)
	}
}

// Calculator computes price adjustments for one option group. It wires the
// value resolver, visibility evaluator, variable binder and formula engine
// together, resolving nested formula options through itself.
type Calculator struct {
	group           model.Group
	resolver        *value.Resolver
	visibility      *visibility.Evaluator
	binder          *binding.Binder
	engine          *formula.Engine
	logger          *slog.Logger
	decimals        int32
	disabled        map[string]bool
	resolverOptions []value.ResolverOption
}

// New constructs a Calculator for group.
func New(group model.Group, options ...Option) *Calculator {
	c := &Calculator{
		group:    group,
		engine:   formula.NewEngine(),
		logger:   slog.Default().With("component", "pricing"),
		decimals: defaultPriceDecimals,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	resolverOptions := append([]value.ResolverOption{value.WithFormulaEvaluator(c.nested)}, c.resolverOptions...)
	c.resolver = value.NewResolver(resolverOptions...)
	c.visibility = visibility.New(group, c.resolver, visibility.WithLogger(c.logger))
	c.binder = binding.New(group, c.resolver, c.visibility, binding.WithLogger(c.logger))
	return c
}

// Group returns the option group the calculator prices.
func (c *Calculator) Group() model.Group {
	return c.group
}

// Visibility returns the visibility evaluator bound to the calculator's resolver.
func (c *Calculator) Visibility() *visibility.Evaluator {
	return c.visibility
}

// Disabled reports whether optionID was disabled with WithDisabled.
func (c *Calculator) Disabled(optionID string) bool {
	return c.disabled[optionID]
}

// EvaluatePrice returns the price adjustment optionID contributes. A nil amount
// means "add nothing": the option is hidden or disabled, its formula is invalid
// or incomplete, or it carries no priced choice. The returned error explains a
// nil amount for formula options and is informational only. Quantity-priced
// choices report the line amount, that is the unit amount times the quantity.
func (c *Calculator) EvaluatePrice(ctx context.Context, optionID string, sub model.Submission, quantity float64, ectx model.EvaluationContext) (*float64, error) {
	opt, ok := c.group.Option(optionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOption, optionID)
	}
	if quantity > 0 {
		sub.Quantity = quantity
	}

	visible, err := c.visibility.Decide(ctx, opt.ID, sub, ectx)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	if opt.Type != model.OptionTypeFormula {
		adj, priced := c.choiceAdjustment(opt, sub, ectx)
		if !priced {
			return nil, nil
		}
		amount := adj.line
		return &amount, nil
	}

	amount, err := c.Formula(ctx, opt, sub, ectx)
	if err != nil {
		c.logger.Debug("formula produced no value", "option", opt.ID, "error", err)
		return nil, err
	}
	return &amount, nil
}

// Formula evaluates a computed-formula option without checking its own
// visibility. Referenced options still bind through visibility. Disabled
// options fail with ErrDisabled, also when referenced by another formula.
func (c *Calculator) Formula(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) (float64, error) {
	if c.disabled[opt.ID] {
		return 0, fmt.Errorf("%w: %q", ErrDisabled, opt.ID)
	}
	f := opt.Formula()
	if f == nil || strings.TrimSpace(f.Expression) == "" {
		return 0, &formula.EvaluationError{
			Reason: formula.ReasonSyntax,
			Err:    fmt.Errorf("option %s has no formula", opt.ID),
		}
	}

	ctx, entered := enter(ctx, opt.ID)
	if !entered {
		return 0, &formula.EvaluationError{
			Expression: f.Expression,
			Reason:     formula.ReasonRuntime,
			Err:        fmt.Errorf("formula %s references itself", opt.ID),
		}
	}

	bound, err := c.binder.Bind(ctx, *f, sub, ectx)
	if err != nil {
		return 0, err
	}
	return c.engine.Evaluate(bound.Expression, bound.Variables, binding.Scope(sub, ectx))
}

// nested resolves a formula option referenced as a variable of another formula.
func (c *Calculator) nested(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) (float64, bool) {
	amount, err := c.Formula(ctx, opt, sub, ectx)
	if err != nil {
		c.logger.Debug("nested formula produced no value", "option", opt.ID, "error", err)
		return 0, false
	}
	return amount, true
}

// adjustment is what the selected choices of one option add, per unit and for
// the whole line. The two differ only for quantity-priced choices.
type adjustment struct {
	unit float64
	line float64
}

func (c *Calculator) choiceAdjustment(opt model.Option, sub model.Submission, ectx model.EvaluationContext) (adjustment, bool) {
	var out adjustment
	if len(opt.Choices) == 0 {
		return out, false
	}
	raw := sub.All(opt.ID)
	if opt.Type.SingleChoice() && len(raw) > 1 {
		raw = raw[:1]
	}
	quantity := sub.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	priced := false
	for _, id := range raw {
		choice, ok := findChoice(opt, id)
		if !ok {
			continue
		}
		switch choice.PriceType {
		case model.PriceTypeFixed:
			out.unit += choice.PriceAmount
			out.line += choice.PriceAmount
		case model.PriceTypePercentage:
			amount := ectx.Item.EffectivePrice(sub.VariationID) * choice.PriceAmount / 100
			out.unit += amount
			out.line += amount
		case model.PriceTypeQuantity:
			out.unit += choice.PriceAmount
			out.line += choice.PriceAmount * quantity
		default:
			continue
		}
		priced = true
	}
	return out, priced
}

func findChoice(opt model.Option, raw string) (model.Choice, bool) {
	raw = strings.TrimSpace(raw)
	if choice, _, ok := opt.Choice(raw); ok {
		return choice, true
	}
	for _, choice := range opt.Choices {
		if strings.EqualFold(choice.Label, raw) {
			return choice, true
		}
	}
	return model.Choice{}, false
}

type stackKey struct{}

// enter records optionID on the formula evaluation stack carried by ctx. It
// reports false when the option is already being evaluated.
func enter(ctx context.Context, optionID string) (context.Context, bool) {
	stack, _ := ctx.Value(stackKey{}).([]string)
	if slices.Contains(stack, optionID) {
		return ctx, false
	}
	next := append(slices.Clone(stack), optionID)
	return context.WithValue(ctx, stackKey{}, next), true
}
