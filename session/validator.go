package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"turks-backend/core"
)

const bearerPrefix = "Bearer "

// Validator checks bearer credentials against one role's secret. User and
// worker validators never share a key, so a token minted for one role fails
// signature verification on the other.
type Validator struct {
	role   core.Role
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewValidator builds a Validator with the standard clock-skew leeway.
func NewValidator(role core.Role, secret string) (*Validator, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if secret == "" {
		return nil, errors.New("signing secret required")
	}
	return &Validator{
		role:   role,
		secret: []byte(secret),
		leeway: ClockSkew * time.Second,
		now:    time.Now,
	}, nil
}

// WithClock overrides the validator's time source.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Role returns the role this validator admits.
func (v *Validator) Role() core.Role { return v.role }

// Authenticate parses an Authorization header value and validates its token.
func (v *Validator) Authenticate(header string) (core.Identity, error) {
	if strings.TrimSpace(header) == "" {
		return core.Identity{}, core.NewAuthError(core.AuthMissingCredential, "authentication required", nil)
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return core.Identity{}, core.NewAuthError(core.AuthMalformedCredential, "invalid authorization format", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return core.Identity{}, core.NewAuthError(core.AuthEmptyCredential, "no token provided", nil)
	}
	return v.ValidateToken(token)
}

// ValidateToken verifies a raw token string.
func (v *Validator) ValidateToken(token string) (core.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.Identity{}, core.NewAuthError(core.AuthCredentialExpired, "session expired", err)
		}
		return core.Identity{}, core.NewAuthError(core.AuthInvalidCredential, "invalid token", err)
	}
	if claims.UserID == "" || claims.Role == "" {
		return core.Identity{}, core.NewAuthError(core.AuthIncompleteCredential, "token must carry userId and role", nil)
	}
	if claims.Role != v.role {
		return core.Identity{}, core.NewAuthError(core.AuthInvalidCredential, "token role does not match endpoint", nil)
	}
	return core.Identity{PublicAddress: claims.UserID, Role: claims.Role}, nil
}
