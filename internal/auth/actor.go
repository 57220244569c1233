package auth

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the actor address when no JWT secret is configured
// and a trusted proxy has already authenticated the caller.
const UserIDHeader = "X-User-Id"

type actorKey struct{}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor for this request, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey{}).(string)
	return actor, ok && actor != ""
}

// Authenticator resolves the actor of each request. With a secret it
// requires a bearer token; without one it trusts UserIDHeader.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

func (a *Authenticator) RequiresToken() bool {
	return a.secret != ""
}

// Resolve returns the actor for r, or "" when the request is anonymous.
// An invalid token is an error; a missing one is not.
func (a *Authenticator) Resolve(r *http.Request) (string, error) {
	if !a.RequiresToken() {
		return strings.TrimSpace(r.Header.Get(UserIDHeader)), nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", ErrInvalidToken
	}
	return ValidateJWT(a.secret, strings.TrimSpace(tokenString))
}
