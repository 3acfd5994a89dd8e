package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/formula"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
	"github.com/goliatone/go-productoptions/pkg/visibility"
)

// ErrIncomplete reports a formula whose expanded expression references a
// variable with no binding. The formula produces no value.
var ErrIncomplete = errors.New("binding: formula is incomplete")

// Bound is the result of binding a formula against a submission.
type Bound struct {
	// Expression is the custom-variable expanded, lower-cased expression.
	Expression string
	// Variables maps lower-cased variable names to numbers.
	Variables map[string]float64
}

// Option customises a Binder.
type Option func(*Binder)

// WithLogger sets the logger used for binding diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Binder turns a formula's variable list into a name to number map for one
// submission. It keeps no state between calls.
type Binder struct {
	group    model.Group
	resolver *value.Resolver
	decider  visibility.Decider
	logger   *slog.Logger
}

// New constructs a Binder. Hidden options, as reported by decider, bind to
// their neutral value.
func New(group model.Group, resolver *value.Resolver, decider visibility.Decider, options ...Option) *Binder {
	if resolver == nil {
		resolver = value.NewResolver()
	}
	if decider == nil {
		decider = visibility.New(group, resolver)
	}
	b := &Binder{
		group:    group,
		resolver: resolver,
		decider:  decider,
		logger:   slog.Default().With("component", "binding"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Bind resolves every variable of f and checks that the expanded expression
// only references bound names. A non-numeric value yields a
// *formula.EvaluationError; a missing binding yields ErrIncomplete.
func (b *Binder) Bind(ctx context.Context, f model.Formula, sub model.Submission, ectx model.EvaluationContext) (Bound, error) {
	bound := Bound{
		Expression: Expand(f),
		Variables:  make(map[string]float64, len(f.Variables)),
	}

	for _, v := range f.Variables {
		key := v.Key()
		if key == "" {
			continue
		}
		n, ok, err := b.variable(ctx, v, sub, ectx)
		if err != nil {
			return bound, err
		}
		if ok {
			bound.Variables[key] = n
		}
	}

	refs, err := formula.References(bound.Expression)
	if err != nil {
		return bound, err
	}
	var missing []string
	for _, ref := range refs {
		if _, ok := bound.Variables[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return bound, fmt.Errorf("%w: unbound %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return bound, nil
}

func (b *Binder) variable(ctx context.Context, v model.Variable, sub model.Submission, ectx model.EvaluationContext) (float64, bool, error) {
	if v.Kind == model.VariableKindProperty {
		n, ok := value.Property(model.PropertyName(strings.TrimSpace(v.OptionID)), sub, ectx)
		if !ok {
			return 0, false, notNumeric(v, "item property is not numeric")
		}
		return n, true, nil
	}

	opt, ok := b.group.Option(v.OptionID)
	if !ok {
		b.logger.Debug("variable references unknown option", "variable", v.Name, "option", v.OptionID)
		return 0, false, nil
	}

	visible, err := b.decider.Decide(ctx, opt.ID, sub, ectx)
	if err != nil {
		return 0, false, fmt.Errorf("binding: decide %s: %w", opt.ID, err)
	}
	if !visible {
		if v.NonePath() {
			return 1, true, nil
		}
		return 0, true, nil
	}

	resolved := b.resolver.Resolve(ctx, opt, sub, ectx)
	path := strings.TrimSpace(v.Path)
	if path == "" {
		path = b.resolver.DefaultPath(opt)
	}
	n, ok := resolved.Path(path)
	if !ok {
		if !resolved.Available() {
			return 0, false, notNumeric(v, "referenced formula produced no value")
		}
		return 0, false, notNumeric(v, fmt.Sprintf("path %q is not numeric", path))
	}
	return n, true, nil
}

func notNumeric(v model.Variable, reason string) error {
	return &formula.EvaluationError{
		Reason: formula.ReasonNotNumeric,
		Err:    fmt.Errorf("variable [%s]: %s", v.Key(), reason),
	}
}

// Scope builds the function-library scope for a submission.
func Scope(sub model.Submission, ectx model.EvaluationContext) formula.Scope {
	return formula.Scope{
		Now:            ectx.Clock(),
		Location:       ectx.Zone(),
		FirstDayOfWeek: ectx.FirstDayOfWeek,
		Meta: func(key string) (string, bool) {
			return value.Meta(key, sub, ectx)
		},
	}
}
