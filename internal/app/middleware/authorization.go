package middleware

import (
	"context"
	"errors"
	"slices"

	"akwa/internal/app/commands"
	"akwa/internal/app/queries"
)

var (
	ErrUnauthenticated = errors.New("middleware: principal missing")
	ErrForbidden       = errors.New("middleware: principal lacks required role")
)

// Principal is the caller identity forwarded by the gateway.
type Principal struct {
	ID    string
	Roles []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.ID != ""
}

// RoleRestricted is implemented by messages that only some roles may send.
type RoleRestricted interface {
	RequiredRole() string
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleAuthorizer checks RoleRestricted messages against the principal in ctx.
// Messages without a role requirement pass through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok || restricted.RequiredRole() == "" {
		return nil
	}
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !p.HasRole(restricted.RequiredRole()) {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
