package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lower-case hex SHA-256 of raw.
// It is the lookup key for stored refresh and reset tokens.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SHA256Digester adapts Digest to the service's TokenHasher port.
type SHA256Digester struct{}

func (SHA256Digester) Digest(raw string) string { return Digest(raw) }
