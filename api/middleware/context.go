package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

// Principal is the caller Auth attached to the request. UserID stays a
// string so downstream keys (rate limits, idempotency) can use it as is.
type Principal struct {
	UserID string
	Role   enums.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

// UserUUIDFromContext is false when the request carries no usable identity.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) enums.Role {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}
