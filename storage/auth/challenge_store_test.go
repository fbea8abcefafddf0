package auth

import (
	"errors"
	"testing"
	"time"
)

func TestChallengeSingleUse(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	ch, err := store.Issue("user", "wallet-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(ch.Nonce) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", ch.Nonce)
	}

	match := func(c Challenge) bool { return c.Nonce == ch.Nonce }
	if err := store.Verify("user", "wallet-a", match); err != nil {
		t.Fatalf("expected first verification to pass: %v", err)
	}
	if err := store.Verify("user", "wallet-a", match); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("challenge must not verify twice, got %v", err)
	}
}

func TestChallengeReissueKeepsOutstandingNonce(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	first, err := store.Issue("user", "wallet-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	again, err := store.Issue("user", "wallet-a")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if again.Nonce != first.Nonce {
		t.Fatalf("reissue replaced the outstanding nonce")
	}
	if err := store.Verify("user", "wallet-a", func(c Challenge) bool { return c.Nonce == first.Nonce }); err != nil {
		t.Fatalf("original nonce rejected: %v", err)
	}
}

func TestChallengeScopesAreIndependent(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	user, _ := store.Issue("user", "wallet-a")
	worker, _ := store.Issue("worker", "wallet-a")
	if user.Nonce == worker.Nonce {
		t.Fatalf("scopes share a nonce")
	}
	if err := store.Verify("user", "wallet-a", func(c Challenge) bool { return c.Nonce == user.Nonce }); err != nil {
		t.Fatalf("user challenge lost: %v", err)
	}
	if err := store.Verify("worker", "wallet-a", func(c Challenge) bool { return c.Nonce == worker.Nonce }); err != nil {
		t.Fatalf("worker challenge lost: %v", err)
	}
}

func TestChallengeExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewChallengeStore(5 * time.Minute).WithClock(func() time.Time { return now })
	ch, err := store.Issue("user", "wallet-b")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = ch.ExpiresAt
	if err := store.Verify("user", "wallet-b", func(Challenge) bool { return true }); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expired challenge verified, got %v", err)
	}

	fresh, err := store.Issue("user", "wallet-b")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if fresh.Nonce == ch.Nonce {
		t.Fatalf("expired nonce reissued")
	}
}

func TestChallengeAttemptLimit(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	ch, _ := store.Issue("user", "wallet-c")
	for i := 0; i < ch.MaxAttempts; i++ {
		if err := store.Verify("user", "wallet-c", func(Challenge) bool { return false }); !errors.Is(err, ErrChallengeMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i, err)
		}
	}
	if err := store.Verify("user", "wallet-c", func(Challenge) bool { return true }); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("challenge should be burned after max attempts, got %v", err)
	}
}

func TestChallengeUnknownWallet(t *testing.T) {
	store := NewChallengeStore(time.Minute)
	if err := store.Verify("user", "nobody", func(Challenge) bool { return true }); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("unknown wallet verified, got %v", err)
	}
}

func TestChallengePurge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewChallengeStore(time.Minute).WithClock(func() time.Time { return now })
	_, _ = store.Issue("user", "w1")
	_, _ = store.Issue("worker", "w1")
	_, _ = store.Issue("user", "w2")
	now = now.Add(2 * time.Minute)
	if got := store.Purge(); got != 3 {
		t.Fatalf("expected 3 purged, got %d", got)
	}
}
