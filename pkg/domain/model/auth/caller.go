package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Caller is the authenticated identity a request runs as
type Caller struct {
	UserID string
	// Groups are additional access ids (group ids) the user belongs to
	Groups []string
	// Admin grants the administrative role
	Admin bool
}

// AccessIDs returns the user id followed by the group ids, de-duplicated
func (c *Caller) AccessIDs() []string {
	seen := make(map[string]struct{}, len(c.Groups)+1)
	ids := make([]string, 0, len(c.Groups)+1)
	for _, id := range append([]string{c.UserID}, c.Groups...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

type callerKey struct{}

// WithCaller stores the caller in the context
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by WithCaller
func CallerFromContext(ctx context.Context) (*Caller, error) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	if !ok || c == nil {
		return nil, goerr.New("caller not found in context")
	}
	return c, nil
}
