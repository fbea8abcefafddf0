package core

import "time"

// Shared domain types

// Role scopes a session to one half of the API surface.
type Role string

const (
	RoleUser   Role = "user"
	RoleWorker Role = "worker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleWorker
}

// Identity is the authenticated principal derived from a session token.
type Identity struct {
	PublicAddress string `json:"userId"`
	Role          Role   `json:"role"`
}

// SessionToken is a signed, time-bounded bearer credential.
type SessionToken struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentProof is a ledger transfer that has been checked against the
// treasury address and task price.
type PaymentProof struct {
	Payer                string     `json:"payer"`
	TransactionSignature string     `json:"transaction_signature"`
	AmountLamports       uint64     `json:"amount_lamports"`
	Treasury             string     `json:"treasury"`
	Slot                 uint64     `json:"slot,omitempty"`
	BlockTime            *time.Time `json:"block_time,omitempty"`
	VerifiedAt           time.Time  `json:"verified_at"`
}

// TaskOption is one image a worker can pick.
type TaskOption struct {
	Position int    `json:"position"`
	ImageURL string `json:"imageUrl"`
}

// Task is a paid labeling job. Immutable once created.
type Task struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Options          []TaskOption `json:"options"`
	Creator          string       `json:"creator"`
	PaymentSignature string       `json:"payment_signature"`
	AmountLamports   uint64       `json:"amount_lamports"`
	CreatedAt        time.Time    `json:"created_at"`
}

// MinTaskOptions is the fewest options a task may carry.
const MinTaskOptions = 2

// LamportsPerSOL converts between SOL and lamports.
const LamportsPerSOL = 1_000_000_000
