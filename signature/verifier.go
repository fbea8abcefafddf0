package signature

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
)

// Verify reports whether sig is a valid Ed25519 signature of message by
// publicKey. Malformed key or signature lengths return false.
func Verify(message, sig, publicKey []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, sig)
}

// DecodeAddress decodes a base58 wallet address into its 32-byte public key.
func DecodeAddress(address string) ([]byte, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}
	// base58.Decode returns an empty slice for invalid characters
	raw := base58.Decode(addr)
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("address decodes to %d bytes, want %d", len(raw), PublicKeySize)
	}
	return raw, nil
}

// EncodeAddress encodes a public key as a base58 wallet address.
func EncodeAddress(publicKey []byte) string {
	return base58.Encode(publicKey)
}

// SignatureFromInts converts a JSON number array (as sent by wallet adapters)
// into bytes. Values outside 0..255 are rejected.
func SignatureFromInts(values []int) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("signature byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}
