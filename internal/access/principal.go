// Package access holds the request-scoped caller identity and the role gate.
package access

import (
	"context"
	"time"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a single request
type Principal struct {
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	// TokenID identifies the session token so it can be revoked on logout
	TokenID   string     `json:"-"`
	ExpiresAt *time.Time `json:"-"`
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil && p.Role.Valid()
}

// ActorID returns the principal's id for audit entries, nil for anonymous callers
func (p Principal) ActorID() *uuid.UUID {
	if p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, or an anonymous one
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
