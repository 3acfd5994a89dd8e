package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
)

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithAuthority sets where deferred formulas are evaluated.
func WithAuthority(authority Authority) Option {
	return func(c *Coordinator) {
		c.authority = authority
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(next func() string) Option {
	return func(c *Coordinator) {
		if next != nil {
			c.requestID = next
		}
	}
}

// Preview is the outcome of one PreviewOrDefer call.
type Preview struct {
	Token uint64
	// Immediate holds amounts evaluated in the presentation context.
	Immediate []Amount
	// Pending is non-nil when some formulas were deferred to the authority.
	Pending *Pending
}

// State is the price display state of the presentation context.
type State struct {
	// Amounts are the last known-good amounts by option id.
	Amounts   map[string]*float64
	InFlight  bool
	Stale     bool
	LastError error
}

// CheckoutBlocked reports whether the shopper must wait for a successful
// re-evaluation before checking out.
func (s State) CheckoutBlocked() bool {
	return s.InFlight || s.LastError != nil
}

// Coordinator decides, per formula, whether the presentation context can trust
// its own evaluation or must defer to the authoritative context. It discards
// round-trip results superseded by a newer preview.
type Coordinator struct {
	calc      *pricing.Calculator
	ectx      model.EvaluationContext
	authority Authority
	logger    *slog.Logger
	requestID func() string

	token atomic.Uint64

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// New constructs a Coordinator pricing with calc under the presentation
// context ectx.
func New(calc *pricing.Calculator, ectx model.EvaluationContext, options ...Option) *Coordinator {
	c := &Coordinator{
		calc:      calc,
		ectx:      ectx.WithRole(model.RolePresentation),
		logger:    slog.Default().With("component", "coordinator"),
		requestID: func() string { return uuid.NewString() },
		state:     State{Amounts: map[string]*float64{}},
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Defers reports whether formula optionID is evaluated by the authority under
// the coordinator's context.
func (c *Coordinator) Defers(optionID string) bool {
	group := c.calc.Group()
	if pricing.NetworkDependent(group, optionID) {
		return true
	}
	return c.ectx.TaxConflict && pricing.TaxSensitive(group, optionID)
}

// PreviewOrDefer evaluates formulaSet for a new input event. Formulas that are
// safe in the presentation context are evaluated immediately. The rest are sent
// to the authority and resolve through Preview.Pending. Each call supersedes
// any round-trip still in flight.
func (c *Coordinator) PreviewOrDefer(ctx context.Context, formulaSet []string, item model.Item, sub model.Submission) Preview {
	token := c.token.Add(1)
	ectx := c.ectx.WithItem(item)
	preview := Preview{Token: token}

	var deferred []string
	for _, id := range formulaSet {
		if c.Defers(id) {
			deferred = append(deferred, id)
			continue
		}
		amount, err := c.calc.EvaluatePrice(ctx, id, sub, 0, ectx)
		if err != nil {
			c.logger.Debug("preview formula produced no value", "option", id, "error", err)
		}
		preview.Immediate = append(preview.Immediate, Amount{OptionID: id, Amount: amount})
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for _, amount := range preview.Immediate {
		c.state.Amounts[amount.OptionID] = amount.Amount
	}
	c.state.InFlight = false
	if len(deferred) == 0 {
		// nothing shown depends on an earlier failed round-trip
		c.state.Stale = false
		c.state.LastError = nil
		c.mu.Unlock()
		return preview
	}

	pending := newPending(token, deferred)
	preview.Pending = pending
	if c.authority == nil {
		err := &TransportError{Op: "evaluate", Err: ErrNoAuthority}
		c.state.Stale = true
		c.state.LastError = err
		c.mu.Unlock()
		pending.resolve(nil, err)
		return preview
	}

	roundTrip, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.state.InFlight = true
	c.mu.Unlock()

	req := Request{
		ItemID:     item.ID,
		Formulas:   deferred,
		Submission: sub,
		Token:      token,
		RequestID:  c.requestID(),
	}
	go c.roundTrip(roundTrip, cancel, req, pending)
	return preview
}

func (c *Coordinator) roundTrip(ctx context.Context, cancel context.CancelFunc, req Request, pending *Pending) {
	defer cancel()
	resp, err := c.authority.Evaluate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Token != c.token.Load() || errors.Is(err, context.Canceled) {
		c.logger.Debug("discarding superseded round-trip", "token", req.Token, "request_id", req.RequestID)
		pending.resolve(nil, ErrStale)
		return
	}
	c.cancel = nil
	c.state.InFlight = false

	if err == nil && resp.Token != req.Token {
		c.logger.Debug("discarding response for another token", "want", req.Token, "got", resp.Token)
		pending.resolve(nil, ErrStale)
		return
	}
	if err != nil {
		err = asTransportError("evaluate", err)
		c.logger.Warn("authoritative evaluation failed", "request_id", req.RequestID, "error", err)
		c.state.Stale = true
		c.state.LastError = err
		pending.resolve(nil, err)
		return
	}

	for _, amount := range resp.Amounts {
		c.state.Amounts[amount.OptionID] = amount.Amount
	}
	c.state.Stale = false
	c.state.LastError = nil
	pending.resolve(resp.Amounts, nil)
}

// State returns a snapshot of the display state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.state
	out.Amounts = maps.Clone(c.state.Amounts)
	return out
}

// Commit re-derives the line price in the authoritative context. When the
// authority can commit, it does; otherwise the calculator runs locally under
// the authoritative role.
func (c *Coordinator) Commit(ctx context.Context, item model.Item, sub model.Submission) (pricing.Breakdown, error) {
	if committer, ok := c.authority.(Committer); ok {
		out, err := committer.Commit(ctx, item.ID, sub)
		if err != nil {
			return pricing.Breakdown{}, asTransportError("commit", err)
		}
		return out, nil
	}
	return c.calc.Breakdown(ctx, sub, c.ectx.WithItem(item).WithRole(model.RoleAuthoritative))
}
