package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 12

// NewID returns a random UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewShortID returns prefix followed by a random lowercase alphanumeric suffix,
// e.g. "conv_k3x9q0a1bz7d".
func NewShortID(prefix string) string {
	b := make([]byte, shortIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}
