package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-productoptions/pkg/formula"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
	"github.com/goliatone/go-productoptions/pkg/validation"
)

// LocalOption customises a LocalAuthority.
type LocalOption func(*LocalAuthority)

// WithPricingOptions forwards options to every calculator the authority builds.
func WithPricingOptions(options ...pricing.Option) LocalOption {
	return func(a *LocalAuthority) {
		a.pricing = append(a.pricing, options...)
	}
}

// WithConcurrency bounds the number of formulas evaluated at once.
func WithConcurrency(n int) LocalOption {
	return func(a *LocalAuthority) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithAuthorityLogger sets the logger of a LocalAuthority.
func WithAuthorityLogger(logger *slog.Logger) LocalOption {
	return func(a *LocalAuthority) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// LocalAuthority evaluates deferred formulas in-process under the
// authoritative role. It is what the HTTP server runs behind each round-trip.
type LocalAuthority struct {
	catalog Catalog
	ectx    model.EvaluationContext
	engine  *formula.Engine
	pricing []pricing.Option
	limit   int
	logger  *slog.Logger
}

// NewLocalAuthority constructs an authority reading items and groups from
// catalog. ectx carries the store settings and the FileSizer.
func NewLocalAuthority(catalog Catalog, ectx model.EvaluationContext, options ...LocalOption) *LocalAuthority {
	a := &LocalAuthority{
		catalog: catalog,
		ectx:    ectx.WithRole(model.RoleAuthoritative),
		engine:  formula.NewEngine(),
		limit:   8,
		logger:  slog.Default().With("component", "authority"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Calculator returns a calculator for the item's option group together with
// the authoritative context bound to the item. Formulas with definition errors
// are disabled.
func (a *LocalAuthority) Calculator(ctx context.Context, itemID string) (*pricing.Calculator, model.EvaluationContext, error) {
	if a == nil || a.catalog == nil {
		return nil, model.EvaluationContext{}, ErrNoAuthority
	}
	item, err := a.catalog.Item(ctx, itemID)
	if err != nil {
		return nil, model.EvaluationContext{}, fmt.Errorf("coordinator: load item %q: %w", itemID, err)
	}
	group, err := a.catalog.Group(ctx, itemID)
	if err != nil {
		return nil, model.EvaluationContext{}, fmt.Errorf("coordinator: load group for %q: %w", itemID, err)
	}
	disabled := validation.ValidateGroup(group).Disabled()
	if len(disabled) > 0 {
		a.logger.Debug("formulas disabled by definition errors", "item", itemID, "options", disabled)
	}
	options := append([]pricing.Option{
		pricing.WithEngine(a.engine),
		pricing.WithLogger(a.logger),
		pricing.WithDisabled(disabled...),
	}, a.pricing...)
	return pricing.New(group, options...), a.ectx.WithItem(item), nil
}

// Evaluate implements Authority.
func (a *LocalAuthority) Evaluate(ctx context.Context, req Request) (Response, error) {
	calc, ectx, err := a.Calculator(ctx, req.ItemID)
	if err != nil {
		return Response{}, err
	}

	amounts := make([]Amount, len(req.Formulas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, id := range req.Formulas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			amount, err := calc.EvaluatePrice(gctx, id, req.Submission, 0, ectx)
			if err != nil {
				a.logger.Debug("formula produced no value", "option", id, "request_id", req.RequestID, "error", err)
			}
			amounts[i] = Amount{OptionID: id, Amount: amount}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, fmt.Errorf("coordinator: evaluate: %w", err)
	}
	return Response{Token: req.Token, Amounts: amounts}, nil
}

// Commit implements Committer.
func (a *LocalAuthority) Commit(ctx context.Context, itemID string, sub model.Submission) (pricing.Breakdown, error) {
	calc, ectx, err := a.Calculator(ctx, itemID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return calc.Breakdown(ctx, sub, ectx)
}
