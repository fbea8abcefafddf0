package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"turks-backend/core"
	"turks-backend/signature"
	auth "turks-backend/storage/auth"
)

// IssuerConfig parameterizes one role's sign-in.
type IssuerConfig struct {
	Role    core.Role
	Secret  string
	TTL     time.Duration
	Message string
	// Challenges enables nonce-bound sign-in. Nil keeps the fixed message.
	Challenges *auth.ChallengeStore
}

// Issuer turns a verified wallet signature into a role-scoped session token.
type Issuer struct {
	role       core.Role
	secret     []byte
	ttl        time.Duration
	message    string
	challenges *auth.ChallengeStore
	now        func() time.Time
}

// ChallengeMessage is what a wallet must sign to sign in.
type ChallengeMessage struct {
	Message   string     `json:"message"`
	Nonce     string     `json:"nonce,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewIssuer validates cfg and builds an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", cfg.Role)
	}
	if cfg.Secret == "" {
		return nil, errors.New("signing secret required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	msg := cfg.Message
	if msg == "" {
		msg = DefaultMessages[cfg.Role]
	}
	return &Issuer{
		role:       cfg.Role,
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		message:    msg,
		challenges: cfg.Challenges,
		now:        time.Now,
	}, nil
}

// WithClock overrides the issuer's time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Role returns the role this issuer mints tokens for.
func (i *Issuer) Role() core.Role { return i.role }

// NonceRequired reports whether sign-in is bound to a server-issued nonce.
func (i *Issuer) NonceRequired() bool { return i.challenges != nil }

// Challenge returns the message wallet must sign. In nonce mode the wallet's
// outstanding nonce for this role is reused until it is spent or expires.
func (i *Issuer) Challenge(wallet string) (ChallengeMessage, error) {
	if i.challenges == nil {
		return ChallengeMessage{Message: i.message}, nil
	}
	wallet = strings.TrimSpace(wallet)
	if _, err := signature.DecodeAddress(wallet); err != nil {
		return ChallengeMessage{}, core.NewAuthError(core.AuthInvalidPublicKey, "public key is not a valid wallet address", err)
	}
	ch, err := i.challenges.Issue(string(i.role), wallet)
	if err != nil {
		return ChallengeMessage{}, fmt.Errorf("issue challenge: %w", err)
	}
	exp := ch.ExpiresAt
	return ChallengeMessage{Message: NonceMessage(i.message, ch.Nonce), Nonce: ch.Nonce, ExpiresAt: &exp}, nil
}

// Login verifies sig over the role's challenge message and mints a token.
func (i *Issuer) Login(publicAddress string, sig []byte) (core.SessionToken, error) {
	addr := strings.TrimSpace(publicAddress)
	pub, err := signature.DecodeAddress(addr)
	if err != nil {
		return core.SessionToken{}, core.NewAuthError(core.AuthInvalidPublicKey, "public key is not a valid wallet address", err)
	}

	if i.challenges == nil {
		if !signature.Verify([]byte(i.message), sig, pub) {
			return core.SessionToken{}, core.NewAuthError(core.AuthInvalidSignature, "signature does not match the challenge message", nil)
		}
		return i.Mint(addr)
	}

	err = i.challenges.Verify(string(i.role), addr, func(ch auth.Challenge) bool {
		return signature.Verify([]byte(NonceMessage(i.message, ch.Nonce)), sig, pub)
	})
	switch {
	case errors.Is(err, auth.ErrNoChallenge):
		return core.SessionToken{}, core.NewAuthError(core.AuthInvalidChallenge, "no outstanding sign-in challenge for this wallet", err)
	case err != nil:
		return core.SessionToken{}, core.NewAuthError(core.AuthInvalidSignature, "signature does not match the challenge message", nil)
	}
	return i.Mint(addr)
}

// Mint signs a token for addr without checking any signature.
func (i *Issuer) Mint(addr string) (core.SessionToken, error) {
	issued := i.now().Truncate(jwt.TimePrecision)
	expires := issued.Add(i.ttl)
	claims := Claims{
		UserID: addr,
		Role:   i.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return core.SessionToken{}, fmt.Errorf("sign token: %w", err)
	}
	return core.SessionToken{
		Token:     signed,
		Identity:  core.Identity{PublicAddress: addr, Role: i.role},
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}
