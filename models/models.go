package models

import (
	"time"

	"turks-backend/core"
)

// SignInRequest is the body of POST /v1/{user,worker}/signin. Signature is
// the raw Ed25519 signature as a byte array, the way wallet adapters emit it.
type SignInRequest struct {
	PublicKey string `json:"publicKey"`
	Signature []int  `json:"signature"`
}

// SignInResponse carries the session token.
type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse describes the authenticated principal.
type MeResponse struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// ChallengeResponse is the message a wallet must sign.
type ChallengeResponse struct {
	Message   string     `json:"message"`
	Nonce     string     `json:"nonce,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TaskOptionRequest is one option of a new task.
type TaskOptionRequest struct {
	ImageURL string `json:"imageUrl"`
}

// CreateTaskRequest is the body of POST /v1/user/task.
type CreateTaskRequest struct {
	Title     string              `json:"title"`
	Options   []TaskOptionRequest `json:"options"`
	Signature string              `json:"signature"`
}

// CreateTaskResponse returns the id of the new task.
type CreateTaskResponse struct {
	ID string `json:"id"`
}

// TaskListResponse is a page of tasks. Total counts every task the caller
// can list, not just this page.
type TaskListResponse struct {
	Tasks []core.Task `json:"tasks"`
	Total int         `json:"total"`
}

// PresignedURLResponse tells the client where to PUT an upload and where the
// object will be readable afterwards.
type PresignedURLResponse struct {
	PreSignedURL string            `json:"preSignedUrl"`
	Fields       map[string]string `json:"fields"`
	PublicURL    string            `json:"publicUrl"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// PaymentRequestResponse describes the transfer a task requires.
type PaymentRequestResponse struct {
	Recipient   string `json:"recipient"`
	Lamports    uint64 `json:"lamports"`
	AmountSOL   string `json:"amount_sol"`
	URL         string `json:"url"`
	QRPNGBase64 string `json:"qr_png_base64,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Message  string `json:"message"`
	Error    string `json:"error"`
	Solution string `json:"solution,omitempty"`
}
