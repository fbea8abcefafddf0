package session

import (
	"github.com/golang-jwt/jwt/v5"

	"turks-backend/core"
)

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID string    `json:"userId"`
	Role   core.Role `json:"role"`
	jwt.RegisteredClaims
}

// ClockSkew is the expiry tolerance granted to clients with drifting clocks.
const ClockSkew = 300 // seconds

// DefaultMessages are the fixed strings a wallet signs to prove key control.
var DefaultMessages = map[core.Role]string{
	core.RoleUser:   "Sign into mechanical turks",
	core.RoleWorker: "Sign into mechanical turks as a worker",
}

// NonceMessage binds a base challenge message to a server-issued nonce.
func NonceMessage(base, nonce string) string {
	return base + "\nNonce: " + nonce
}
