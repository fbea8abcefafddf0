package core

import (
	"errors"
	"net/http"
)

// KindedError is implemented by every error that crosses the HTTP boundary
// with a stable machine-readable kind.
type KindedError interface {
	error
	ErrorKind() string
	HTTPStatus() int
}

// AuthKind enumerates signature and credential failures.
type AuthKind string

const (
	AuthMissingCredential    AuthKind = "MISSING_AUTH_HEADER"
	AuthMalformedCredential  AuthKind = "INVALID_AUTH_FORMAT"
	AuthEmptyCredential      AuthKind = "EMPTY_TOKEN"
	AuthCredentialExpired    AuthKind = "TOKEN_EXPIRED"
	AuthInvalidCredential    AuthKind = "INVALID_TOKEN"
	AuthIncompleteCredential AuthKind = "INVALID_TOKEN_PAYLOAD"
	AuthInvalidSignature     AuthKind = "INVALID_SIGNATURE"
	AuthInvalidPublicKey     AuthKind = "INVALID_PUBLIC_KEY"
	AuthInvalidChallenge     AuthKind = "INVALID_CHALLENGE"
)

// AuthError is returned by the session issuer and validator.
type AuthError struct {
	Kind    AuthKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *AuthError) Unwrap() error      { return e.Err }
func (e *AuthError) ErrorKind() string { return string(e.Kind) }

// HTTPStatus is 401 when the credential is absent or malformed, 403 when it
// was presented but is not acceptable.
func (e *AuthError) HTTPStatus() int {
	switch e.Kind {
	case AuthMissingCredential, AuthMalformedCredential, AuthEmptyCredential:
		return http.StatusUnauthorized
	case AuthInvalidPublicKey:
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

// NewAuthError builds an AuthError.
func NewAuthError(kind AuthKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}

// PaymentKind enumerates ledger and proof failures.
type PaymentKind string

const (
	PaymentMissingSignature    PaymentKind = "MISSING_PAYMENT_SIGNATURE"
	PaymentTransactionNotFound PaymentKind = "TRANSACTION_NOT_FOUND"
	PaymentTransactionFailed   PaymentKind = "TRANSACTION_FAILED"
	PaymentPayerMismatch       PaymentKind = "PAYER_MISMATCH"
	PaymentAmountMismatch      PaymentKind = "AMOUNT_MISMATCH"
	PaymentRecipientMismatch   PaymentKind = "RECIPIENT_MISMATCH"
	PaymentAlreadyConsumed     PaymentKind = "ALREADY_CONSUMED"
	PaymentLedgerUnavailable   PaymentKind = "LEDGER_UNAVAILABLE"
)

// PaymentError is returned by payment attestation and by the handshake when
// a proof does not fit the task being created.
type PaymentError struct {
	Kind    PaymentKind
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *PaymentError) Unwrap() error      { return e.Err }
func (e *PaymentError) ErrorKind() string { return string(e.Kind) }

func (e *PaymentError) HTTPStatus() int {
	switch e.Kind {
	case PaymentMissingSignature:
		return http.StatusBadRequest
	case PaymentAlreadyConsumed:
		return http.StatusConflict
	case PaymentLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusPaymentRequired
	}
}

// NewPaymentError builds a PaymentError.
func NewPaymentError(kind PaymentKind, message string, err error) *PaymentError {
	return &PaymentError{Kind: kind, Message: message, Err: err}
}

// TaskKind enumerates business-rule violations on task creation and lookup.
type TaskKind string

const (
	TaskUnauthorizedRole    TaskKind = "UNAUTHORIZED_ROLE"
	TaskInvalidTitle        TaskKind = "INVALID_TITLE"
	TaskInsufficientOptions TaskKind = "INSUFFICIENT_OPTIONS"
	TaskInvalidOption       TaskKind = "INVALID_OPTION"
	TaskNotFound            TaskKind = "TASK_NOT_FOUND"
)

// TaskError is returned by the task handshake.
type TaskError struct {
	Kind    TaskKind
	Message string
}

func (e *TaskError) Error() string     { return string(e.Kind) + ": " + e.Message }
func (e *TaskError) ErrorKind() string { return string(e.Kind) }

func (e *TaskError) HTTPStatus() int {
	switch e.Kind {
	case TaskUnauthorizedRole:
		return http.StatusForbidden
	case TaskNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// NewTaskError builds a TaskError.
func NewTaskError(kind TaskKind, message string) *TaskError {
	return &TaskError{Kind: kind, Message: message}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) string {
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	return ""
}
