package value

import (
	"context"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Kind resolves one option type. Implementations are pure: malformed or
// missing input yields the kind's neutral value, never an error.
type Kind interface {
	Resolve(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) Value
	// Neutral is the value an option of this kind takes when it is hidden.
	Neutral(opt model.Option) Value
	// DefaultPath is applied when a variable omits its path.
	DefaultPath(opt model.Option) string
}

// FormulaEvaluator evaluates a nested computed-formula option. ok is false when
// the formula produced no value.
type FormulaEvaluator func(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) (float64, bool)

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithFormulaEvaluator wires nested formula resolution.
func WithFormulaEvaluator(fn FormulaEvaluator) ResolverOption {
	return func(r *Resolver) {
		r.formula = fn
	}
}

// WithKind overrides the resolver used for an option type.
func WithKind(t model.OptionType, kind Kind) ResolverOption {
	return func(r *Resolver) {
		r.Register(t, kind)
	}
}

// WithSanitizer replaces the policy used to strip markup from text values.
func WithSanitizer(policy *bluemonday.Policy) ResolverOption {
	return func(r *Resolver) {
		if policy != nil {
			r.sanitizer = policy
		}
	}
}

// Resolver dispatches option resolution to the registered Kind for each type.
type Resolver struct {
	mu        sync.RWMutex
	kinds     map[model.OptionType]Kind
	formula   FormulaEvaluator
	sanitizer *bluemonday.Policy
}

// NewResolver constructs a resolver with the built-in kinds registered.
func NewResolver(options ...ResolverOption) *Resolver {
	r := &Resolver{
		kinds:     make(map[model.OptionType]Kind),
		sanitizer: bluemonday.StrictPolicy(),
	}
	r.registerBuiltins()
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register installs kind for t, replacing any previous registration.
func (r *Resolver) Register(t model.OptionType, kind Kind) {
	if r == nil || kind == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[t] = kind
}

// Kind returns the resolver registered for t.
func (r *Resolver) Kind(t model.OptionType) (Kind, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[t]
	return kind, ok
}

// Resolve returns the current value of opt. Unknown types resolve to zero.
func (r *Resolver) Resolve(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) Value {
	kind, ok := r.Kind(opt.Type)
	if !ok {
		return Scalar(0)
	}
	return kind.Resolve(ctx, opt, sub, ectx)
}

// Neutral returns the hidden-option value for opt.
func (r *Resolver) Neutral(opt model.Option) Value {
	kind, ok := r.Kind(opt.Type)
	if !ok {
		return Scalar(0)
	}
	return kind.Neutral(opt)
}

// DefaultPath returns the path applied when a variable has none.
func (r *Resolver) DefaultPath(opt model.Option) string {
	kind, ok := r.Kind(opt.Type)
	if !ok {
		return ""
	}
	return kind.DefaultPath(opt)
}

func (r *Resolver) registerBuiltins() {
	numeric := numberKind{}
	r.kinds[model.OptionTypeNumber] = numeric
	r.kinds[model.OptionTypePrice] = numeric

	single := choiceKind{multi: false}
	r.kinds[model.OptionTypeRadio] = single
	r.kinds[model.OptionTypeSelect] = single

	multi := choiceKind{multi: true}
	r.kinds[model.OptionTypeCheckbox] = multi
	r.kinds[model.OptionTypeMultiSelect] = multi

	r.kinds[model.OptionTypeText] = textKind{resolver: r}
	r.kinds[model.OptionTypeTextarea] = textKind{resolver: r, multiline: true}
	r.kinds[model.OptionTypeDate] = dateKind{}
	r.kinds[model.OptionTypeFile] = fileKind{}
	r.kinds[model.OptionTypeProduct] = productKind{}
	r.kinds[model.OptionTypeFormula] = formulaKind{resolver: r}
	r.kinds[model.OptionTypeHTML] = displayKind{}
}

func (r *Resolver) evaluateFormula(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) (float64, bool) {
	if r.formula == nil {
		return 0, false
	}
	return r.formula(ctx, opt, sub, ectx)
}

func (r *Resolver) sanitize(raw string) string {
	if r.sanitizer == nil {
		return raw
	}
	return r.sanitizer.Sanitize(raw)
}
