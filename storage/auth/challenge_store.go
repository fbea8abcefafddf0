package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoChallenge means no live challenge is outstanding: none was
	// issued, it expired, it was spent, or its attempts ran out.
	ErrNoChallenge = errors.New("no outstanding challenge")
	// ErrChallengeMismatch means the check rejected the outstanding challenge.
	ErrChallengeMismatch = errors.New("challenge check failed")
)

// Challenge represents a pending wallet sign-in.
type Challenge struct {
	Nonce       string    `json:"nonce"`
	Scope       string    `json:"scope"`
	Wallet      string    `json:"wallet_address"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
}

// ChallengeStore keeps in-memory single-use challenges keyed by scope and
// wallet. A scope/wallet pair has at most one outstanding challenge, and
// issuing again returns it until it is spent or expires.
type ChallengeStore struct {
	mu          sync.Mutex
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	challenges  map[string]Challenge
}

// NewChallengeStore builds a new in-memory challenge store.
func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{
		ttl:         ttl,
		maxAttempts: 5,
		now:         time.Now,
		challenges:  make(map[string]Challenge),
	}
}

// WithClock overrides the store's time source.
func (s *ChallengeStore) WithClock(now func() time.Time) *ChallengeStore {
	s.now = now
	return s
}

func challengeKey(scope, wallet string) string { return scope + "|" + wallet }

// Issue returns the outstanding challenge for scope and wallet, creating one
// when none is live.
func (s *ChallengeStore) Issue(scope, wallet string) (Challenge, error) {
	key := challengeKey(scope, wallet)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ch, ok := s.challenges[key]; ok && now.Before(ch.ExpiresAt) {
		return ch, nil
	}
	nonce, err := randomNonce()
	if err != nil {
		return Challenge{}, err
	}
	ch := Challenge{
		Nonce:       nonce,
		Scope:       scope,
		Wallet:      wallet,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		MaxAttempts: s.maxAttempts,
	}
	s.challenges[key] = ch
	return ch, nil
}

// Verify runs check against the outstanding challenge for scope and wallet.
// The challenge is consumed on success, on expiry and once attempts run out.
func (s *ChallengeStore) Verify(scope, wallet string, check func(Challenge) bool) error {
	key := challengeKey(scope, wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[key]
	if !ok {
		return ErrNoChallenge
	}
	if !s.now().Before(ch.ExpiresAt) {
		delete(s.challenges, key)
		return ErrNoChallenge
	}
	ch.Attempts++
	if ch.Attempts > ch.MaxAttempts {
		delete(s.challenges, key)
		return ErrNoChallenge
	}
	s.challenges[key] = ch
	if check(ch) {
		delete(s.challenges, key)
		return nil
	}
	return ErrChallengeMismatch
}

// Purge drops expired challenges and returns how many were removed.
func (s *ChallengeStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, ch := range s.challenges {
		if !now.Before(ch.ExpiresAt) {
			delete(s.challenges, key)
			removed++
		}
	}
	return removed
}

func randomNonce() (string, error) {
	b := make([]byte, 16) // 128-bit nonce
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
