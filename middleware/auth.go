package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/metrics"
)

type identityKey struct{}

type identitySlotKey struct{}

// identitySlot lets outer middleware see the identity an inner Authenticate
// resolved.
type identitySlot struct {
	mu sync.Mutex
	id *core.Identity
}

func (s *identitySlot) set(id core.Identity) {
	s.mu.Lock()
	s.id = &id
	s.mu.Unlock()
}

func (s *identitySlot) get() (core.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == nil {
		return core.Identity{}, false
	}
	return *s.id, true
}

// Authenticator resolves an Authorization header to an identity.
type Authenticator interface {
	Authenticate(header string) (core.Identity, error)
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	if slot, ok := ctx.Value(identitySlotKey{}).(*identitySlot); ok {
		slot.set(id)
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity Authenticate attached.
func IdentityFromContext(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(core.Identity)
	return id, ok
}

var authSolutions = map[core.AuthKind]string{
	core.AuthMissingCredential:    "Send an Authorization header",
	core.AuthMalformedCredential:  "Use the format: Bearer <token>",
	core.AuthEmptyCredential:      "Include the token after Bearer",
	core.AuthCredentialExpired:    "Sign in again to get a new token",
	core.AuthInvalidCredential:    "Sign in again to get a valid token",
	core.AuthIncompleteCredential: "Sign in again to get a valid token",
}

// Authenticate rejects requests whose bearer token a does not accept and
// attaches the resolved identity otherwise.
func Authenticate(a Authenticator, logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				var authErr *core.AuthError
				if !errors.As(err, &authErr) {
					logger.Error("authentication failed unexpectedly", zap.Error(err))
					WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error occurred", "")
					return
				}
				m.AuthFailure(string(authErr.Kind))
				logger.Debug("credential rejected",
					zap.String("kind", string(authErr.Kind)),
					zap.String("path", r.URL.Path))
				WriteError(w, authErr.HTTPStatus(), string(authErr.Kind), authErr.Message, authSolutions[authErr.Kind])
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
