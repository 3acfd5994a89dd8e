package model

import (
	"context"
	"time"
)

// Role identifies which evaluation context is running the engines.
type Role string

const (
	RolePresentation  Role = "presentation"
	RoleAuthoritative Role = "authoritative"
)

// FileSizer resolves the size of a remotely stored upload. Only available to
// the authoritative context.
type FileSizer interface {
	Size(ctx context.Context, file File) (int64, error)
}

// FileSizerFunc adapts a function into a FileSizer.
type FileSizerFunc func(ctx context.Context, file File) (int64, error)

// Size delegates to the underlying function.
func (fn FileSizerFunc) Size(ctx context.Context, file File) (int64, error) {
	return fn(ctx, file)
}

// MetaLookup resolves item metadata, optionally scoped to a variation.
type MetaLookup interface {
	Meta(item Item, variationID, key string) (string, bool)
}

// EvaluationContext carries the store settings and host collaborators for one
// evaluation pass. It is passed explicitly to every engine call and treated as
// immutable.
type EvaluationContext struct {
	Now            time.Time
	Location       *time.Location
	FirstDayOfWeek time.Weekday
	TaxConflict    bool
	Role           Role
	Item           Item
	Files          FileSizer
	Meta           MetaLookup
}

// Authoritative reports whether network-backed resolvers may be used.
func (c EvaluationContext) Authoritative() bool {
	return c.Role == RoleAuthoritative
}

// Clock returns Now in the configured location, defaulting to the current time.
func (c EvaluationContext) Clock() time.Time {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	if c.Location != nil {
		now = now.In(c.Location)
	}
	return now
}

// Zone returns the configured location, defaulting to UTC.
func (c EvaluationContext) Zone() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// WithItem returns a copy bound to a different catalog item.
func (c EvaluationContext) WithItem(item Item) EvaluationContext {
	c.Item = item
	return c
}

// WithRole returns a copy running under the given role.
func (c EvaluationContext) WithRole(role Role) EvaluationContext {
	c.Role = role
	return c
}
