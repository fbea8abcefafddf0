package ledger

import (
	"context"
	"time"
)

// Err is a sentinel ledger error.
type Err string

func (e Err) Error() string { return string(e) }

const (
	// ErrTransactionNotFound means the ledger definitively has no such
	// transaction. It is never retried.
	ErrTransactionNotFound = Err("transaction not found")
	// ErrUnavailable means the ledger could not be reached or kept failing.
	ErrUnavailable = Err("ledger unavailable")
)

// Transfer is one native-token movement inside a transaction.
type Transfer struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

// Transaction is the subset of a confirmed transaction needed to attest a payment.
type Transaction struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
	Failed    bool
	Transfers []Transfer
}

// Reader looks up one transaction by signature.
type Reader interface {
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// NewReader selects a reader by name. "static" returns an empty in-memory
// ledger for local development; anything else talks JSON-RPC.
func NewReader(name string, opts Options) Reader {
	switch name {
	case "static":
		return NewStatic()
	default:
		return NewRPCClient(opts)
	}
}
