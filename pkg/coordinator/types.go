package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
)

var (
	// ErrStale is returned for a round-trip superseded by a newer preview.
	ErrStale = errors.New("coordinator: stale response")
	// ErrNoAuthority is returned when deferred work has nowhere to go.
	ErrNoAuthority = errors.New("coordinator: no authoritative evaluator configured")
	// ErrUnknownItem is wrapped by catalogs that do not know an item id.
	ErrUnknownItem = errors.New("coordinator: unknown item")
)

// Amount is the evaluated adjustment of one formula option. A nil Amount means
// the formula produced no value.
type Amount struct {
	OptionID string   `json:"optionId"`
	Amount   *float64 `json:"amount"`
}

// Request asks the authoritative context to evaluate formulas for one item.
type Request struct {
	ItemID     string           `json:"itemId"`
	Formulas   []string         `json:"formulas"`
	Submission model.Submission `json:"submission"`
	Token      uint64           `json:"token"`
	RequestID  string           `json:"requestId,omitempty"`
}

// Response carries the authoritative amounts for a request token.
type Response struct {
	Token   uint64   `json:"token"`
	Amounts []Amount `json:"amounts"`
}

// Authority evaluates formulas in the authoritative context.
type Authority interface {
	Evaluate(ctx context.Context, req Request) (Response, error)
}

// AuthorityFunc adapts a function into an Authority.
type AuthorityFunc func(ctx context.Context, req Request) (Response, error)

// Evaluate delegates to the underlying function.
func (fn AuthorityFunc) Evaluate(ctx context.Context, req Request) (Response, error) {
	return fn(ctx, req)
}

// Committer re-derives the final price of a line from raw submitted values.
type Committer interface {
	Commit(ctx context.Context, itemID string, sub model.Submission) (pricing.Breakdown, error)
}

// Catalog supplies items and their option groups.
type Catalog interface {
	Item(ctx context.Context, id string) (model.Item, error)
	Group(ctx context.Context, itemID string) (model.Group, error)
}

// TransportError reports a failed authoritative round-trip.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("coordinator: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func asTransportError(op string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
