package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/ledger"
	"turks-backend/logging"
	"turks-backend/metrics"
)

// ConsumptionChecker reports whether a payment signature already backs a task.
type ConsumptionChecker interface {
	IsPaymentConsumed(ctx context.Context, signature string) (bool, error)
}

// PaymentAttestor checks that a ledger transaction pays the task price from
// the payer to the treasury.
type PaymentAttestor struct {
	ledger   ledger.Reader
	consumed ConsumptionChecker
	treasury string
	price    uint64
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPaymentAttestor builds an attestor for one treasury and price.
func NewPaymentAttestor(reader ledger.Reader, consumed ConsumptionChecker, treasury string, price uint64, logger *zap.Logger, m *metrics.Metrics) *PaymentAttestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentAttestor{
		ledger:   reader,
		consumed: consumed,
		treasury: treasury,
		price:    price,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (a *PaymentAttestor) Treasury() string { return a.treasury }
func (a *PaymentAttestor) Price() uint64    { return a.price }

// AttestPayment verifies txSignature and returns the resulting proof. A
// signature that already backs a task is rejected before the ledger is asked.
func (a *PaymentAttestor) AttestPayment(ctx context.Context, payer, txSignature string) (core.PaymentProof, error) {
	proof, err := a.attest(ctx, payer, strings.TrimSpace(txSignature))
	if err != nil {
		outcome := core.KindOf(err)
		if outcome == "" {
			outcome = "error"
		}
		a.metrics.Attestation(outcome)
		a.logger.Info("payment rejected", logging.Wallet(payer), zap.String("kind", outcome), zap.Error(err))
		return core.PaymentProof{}, err
	}
	a.metrics.Attestation("ok")
	a.logger.Info("payment attested", logging.Wallet(payer), zap.Uint64("slot", proof.Slot))
	return proof, nil
}

func (a *PaymentAttestor) attest(ctx context.Context, payer, sig string) (core.PaymentProof, error) {
	if sig == "" {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentMissingSignature, "payment signature is required", nil)
	}

	consumed, err := a.consumed.IsPaymentConsumed(ctx, sig)
	if err != nil {
		return core.PaymentProof{}, fmt.Errorf("check payment consumption: %w", err)
	}
	if consumed {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentAlreadyConsumed, "payment has already been used for a task", nil)
	}

	start := time.Now()
	tx, err := a.ledger.GetTransaction(ctx, sig)
	a.metrics.LedgerLookup(time.Since(start))
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentTransactionNotFound, "transaction not found on the ledger", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return core.PaymentProof{}, err
	default:
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentLedgerUnavailable, "ledger is unavailable, try again later", err)
	}

	if tx.Failed {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentTransactionFailed, "transaction failed on the ledger", nil)
	}

	var (
		fromPayer  bool
		toTreasury bool
		paid       uint64
	)
	for _, tr := range tx.Transfers {
		if tr.Source != payer {
			continue
		}
		fromPayer = true
		if tr.Destination == a.treasury {
			toTreasury = true
			paid += tr.Lamports
		}
	}
	if !fromPayer {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentPayerMismatch, "transaction was not sent by the signed-in wallet", nil)
	}
	if !toTreasury {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentRecipientMismatch, "transaction does not pay the treasury", nil)
	}
	if paid != a.price {
		return core.PaymentProof{}, core.NewPaymentError(core.PaymentAmountMismatch,
			fmt.Sprintf("transaction pays %d lamports, expected %d", paid, a.price), nil)
	}

	return core.PaymentProof{
		Payer:                payer,
		TransactionSignature: sig,
		AmountLamports:       paid,
		Treasury:             a.treasury,
		Slot:                 tx.Slot,
		BlockTime:            tx.BlockTime,
		VerifiedAt:           a.now().UTC(),
	}, nil
}
