// Package authctx carries the authenticated caller identity through request
// contexts. Authentication itself happens upstream; the engine only verifies
// authorization against the classified role.
package authctx

import (
	"context"
	"strings"
)

type identityKey struct{}

// Identity is the resolved caller passed into every claim action.
type Identity struct {
	EmployeeID string
	Email      string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{}, false
	}
	if strings.TrimSpace(id.EmployeeID) == "" && strings.TrimSpace(id.Email) == "" {
		return Identity{}, false
	}
	return id, true
}
