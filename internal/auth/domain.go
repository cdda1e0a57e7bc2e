package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Roles a mechanic account can hold.
const (
	RoleMechanic = "MECHANIC"
	RoleAdmin    = "ADMIN"
)

// Principal identifies the mechanic behind an authenticated request.
type Principal struct {
	MechanicID int64  `json:"mechanicId"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by RequireMechanic.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
