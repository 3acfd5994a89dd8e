package coordinator

import (
	"context"
	"sync"
)

// Pending is the unresolved result of a deferred round-trip.
type Pending struct {
	token    uint64
	formulas []string

	once    sync.Once
	done    chan struct{}
	amounts []Amount
	err     error
}

func newPending(token uint64, formulas []string) *Pending {
	return &Pending{
		token:    token,
		formulas: append([]string(nil), formulas...),
		done:     make(chan struct{}),
	}
}

// Token returns the request token the round-trip was issued with.
func (p *Pending) Token() uint64 {
	return p.token
}

// Formulas returns the deferred formula option ids.
func (p *Pending) Formulas() []string {
	return append([]string(nil), p.formulas...)
}

// Done is closed once the round-trip resolved, failed or was superseded.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the round-trip resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) ([]Amount, error) {
	select {
	case <-p.done:
		return p.amounts, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) resolve(amounts []Amount, err error) {
	p.once.Do(func() {
		p.amounts = amounts
		p.err = err
		close(p.done)
	})
}
