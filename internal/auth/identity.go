// Package auth carries the authenticated caller through request contexts
// and issues the bearer tokens the API accepts.
package auth

import (
	"context"

	"github.com/markbates/goth"
)

// Identity is what the auth provider tells us about a signed-in user.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller stored by WithIdentity. ok is false for
// anonymous requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// FromGothUser maps an OAuth result onto an Identity.
func FromGothUser(u goth.User) Identity {
	name := u.Name
	if name == "" {
		name = u.NickName
	}
	return Identity{UserID: u.UserID, DisplayName: name, Email: u.Email}
}
