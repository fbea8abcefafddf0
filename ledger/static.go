package ledger

import (
	"context"
	"sync"
)

// Static is an in-memory ledger. Transactions are added with Put.
type Static struct {
	mu    sync.RWMutex
	txs   map[string]Transaction
	calls int
}

// NewStatic returns an empty in-memory ledger.
func NewStatic() *Static {
	return &Static{txs: make(map[string]Transaction)}
}

// Put records tx under its signature.
func (s *Static) Put(tx Transaction) {
	s.mu.Lock()
	s.txs[tx.Signature] = tx
	s.mu.Unlock()
}

// Calls returns how many lookups have been served.
func (s *Static) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func (s *Static) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	tx, ok := s.txs[signature]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	tx.Transfers = append([]Transfer(nil), tx.Transfers...)
	return &tx, nil
}
