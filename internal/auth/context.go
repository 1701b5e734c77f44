package auth

import (
	"context"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

type ctxKey int8

const ctxKeyIdentity ctxKey = iota

// Identity is the authenticated caller of a request.
type Identity struct {
	User    *model.User
	Session *model.Session
	// Token is the signed cookie value; it changes when the session is
	// extended.
	Token string
	// Refreshed is set when Token must be sent back to the client.
	Refreshed bool
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(*Identity)

	return id, ok && id != nil && id.User != nil
}

// UserFromContext returns the signed-in user or nil.
func UserFromContext(ctx context.Context) *model.User {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.User
	}

	return nil
}
