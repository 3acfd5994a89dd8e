// Package productoptions evaluates configurable product options: which options
// are visible for a submission, what each formula option adds to the price,
// and which formulas must wait for the authoritative context when prices are
// entered and displayed with different tax modes.
package productoptions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
	"github.com/goliatone/go-productoptions/pkg/validation"
)

// Group is an ordered option container.
type Group = model.Group

// Option is one configurable field definition.
type Option = model.Option

// Submission is the raw value snapshot of one line.
type Submission = model.Submission

// Item is a catalog item.
type Item = model.Item

// EvaluationContext carries store settings for one evaluation pass.
type EvaluationContext = model.EvaluationContext

// Breakdown is a priced line.
type Breakdown = pricing.Breakdown

// Preview is the outcome of PreviewOrDefer.
type Preview = coordinator.Preview

// ValidationResult lists definition issues of a group.
type ValidationResult = validation.Result

// ErrDisabled is returned by EvaluatePrice for formulas with definition errors.
var ErrDisabled = pricing.ErrDisabled

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	ectx      model.EvaluationContext
	authority coordinator.Authority
	logger    *slog.Logger
	pricing   []pricing.Option
}

// WithContext sets the evaluation context. Its Item is the item being
// configured.
func WithContext(ectx model.EvaluationContext) EngineOption {
	return func(c *engineConfig) {
		c.ectx = ectx
	}
}

// WithAuthority sets where tax-sensitive formulas are deferred to.
func WithAuthority(authority coordinator.Authority) EngineOption {
	return func(c *engineConfig) {
		c.authority = authority
	}
}

// WithLogger sets the logger shared by every engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPriceDecimals sets the rounding of breakdown totals.
func WithPriceDecimals(decimals int) EngineOption {
	return func(c *engineConfig) {
		c.pricing = append(c.pricing, pricing.WithPriceDecimals(decimals))
	}
}

// Engine evaluates one option group for one item.
type Engine struct {
	calc     *pricing.Calculator
	coord    *coordinator.Coordinator
	ectx     model.EvaluationContext
	result   validation.Result
	disabled []string
	logger   *slog.Logger
}

// New validates group and prepares the engines. Formula options with
// definition errors are disabled; the issues are logged once here.
func New(group model.Group, options ...EngineOption) *Engine {
	cfg := engineConfig{
		ectx:   model.EvaluationContext{Role: model.RolePresentation},
		logger: slog.Default().With("component", "productoptions"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	result := validation.ValidateGroup(group)
	for _, issue := range result.Issues {
		level := slog.LevelWarn
		if issue.Severity == validation.SeverityWarning {
			level = slog.LevelInfo
		}
		cfg.logger.Log(context.Background(), level, "option definition issue",
			"group", group.ID, "option", issue.OptionID, "field", issue.Field, "message", issue.Message)
	}

	disabled := result.Disabled()
	calc := pricing.New(group, append([]pricing.Option{
		pricing.WithLogger(cfg.logger),
		pricing.WithDisabled(disabled...),
	}, cfg.pricing...)...)
	coordOpts := []coordinator.Option{coordinator.WithLogger(cfg.logger)}
	if cfg.authority != nil {
		coordOpts = append(coordOpts, coordinator.WithAuthority(cfg.authority))
	}
	return &Engine{
		calc:     calc,
		coord:    coordinator.New(calc, cfg.ectx, coordOpts...),
		ectx:     cfg.ectx,
		result:   result,
		disabled: disabled,
		logger:   cfg.logger,
	}
}

// Calculator returns the presentation calculator behind the engine.
func (e *Engine) Calculator() *pricing.Calculator {
	return e.calc
}

// Context returns the evaluation context the engine was built with.
func (e *Engine) Context() model.EvaluationContext {
	return e.ectx
}

// Validate returns the definition issues found when the engine was built.
func (e *Engine) Validate() ValidationResult {
	return e.result
}

// EvaluateVisibility reports whether optionID is shown for sub.
func (e *Engine) EvaluateVisibility(ctx context.Context, optionID string, sub model.Submission) (bool, error) {
	return e.calc.Visibility().Decide(ctx, optionID, sub, e.ectx)
}

// Visibility returns the visibility of every option.
func (e *Engine) Visibility(ctx context.Context, sub model.Submission) map[string]bool {
	return e.calc.Visibility().Map(ctx, sub, e.ectx)
}

// EvaluatePrice returns what optionID adds to the price. A nil amount adds
// nothing.
func (e *Engine) EvaluatePrice(ctx context.Context, optionID string, sub model.Submission, quantity float64) (*float64, error) {
	if e.Disabled(optionID) {
		return nil, fmt.Errorf("%w: %q", ErrDisabled, optionID)
	}
	return e.calc.EvaluatePrice(ctx, optionID, sub, quantity, e.ectx)
}

// Disabled reports whether optionID has definition errors.
func (e *Engine) Disabled(optionID string) bool {
	_, found := slices.BinarySearch(e.disabled, optionID)
	return found
}

// PreviewOrDefer prices formulas for display, deferring tax-sensitive ones to
// the authority when the store has a tax conflict. Disabled formulas are left
// out.
func (e *Engine) PreviewOrDefer(ctx context.Context, formulas []string, sub model.Submission) Preview {
	enabled := make([]string, 0, len(formulas))
	for _, id := range formulas {
		if e.Disabled(id) {
			e.logger.Debug("skipping disabled formula", "option", id)
			continue
		}
		enabled = append(enabled, id)
	}
	return e.coord.PreviewOrDefer(ctx, enabled, e.ectx.Item, sub)
}

// State returns the display state of the last preview.
func (e *Engine) State() coordinator.State {
	return e.coord.State()
}

// Commit re-derives the charged price from the raw submission. Disabled
// formulas are reported as unknown and add nothing.
func (e *Engine) Commit(ctx context.Context, sub model.Submission) (Breakdown, error) {
	return e.coord.Commit(ctx, e.ectx.Item, sub)
}
