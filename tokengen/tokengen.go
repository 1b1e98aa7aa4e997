// Package tokengen generates the opaque bearer tokens that address share
// links. Tokens are drawn from crypto/rand and use only base62 characters,
// so they are URL-safe without escaping. Generators are safe for
// concurrent use.
//
// Uniqueness is not guaranteed here; the link store's unique constraint is
// authoritative and callers re-draw on collision.
package tokengen

import (
	"crypto/rand"
	"errors"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator produces share-link tokens.
type Generator interface {
	Generate(length int) (string, error)
}

type base62Generator struct{}

// NewBase62 returns a Generator producing random base62 tokens.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate returns a random base62 string of the given length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// Modulo bias over 62 symbols is negligible for token purposes.
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}

	return string(b), nil
}
