package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// EntropyBytes is the number of random bytes behind every session token (256 bits).
const EntropyBytes = 32

// Length is the length of an encoded token: 32 bytes in unpadded base64url.
var Length = base64.RawURLEncoding.EncodedLen(EntropyBytes)

// Generator produces unguessable session identifiers.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws tokens from a cryptographically secure source.
// The zero value reads from crypto/rand.
type RandomGenerator struct {
	// Source overrides crypto/rand; only tests set it.
	Source io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *RandomGenerator { return &RandomGenerator{} }

// Generate returns a base64url (unpadded) encoding of 32 random bytes.
// There is no fallback: if the secure source fails, the error is returned as is.
func (g *RandomGenerator) Generate() (string, error) {
	src := g.Source
	if src == nil {
		src = rand.Reader
	}
	b := make([]byte, EntropyBytes)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", fmt.Errorf("secure random source unavailable: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SelfTest checks the secure random source once. Callers treat an error as fatal at startup.
func SelfTest(g Generator) error {
	tok, err := g.Generate()
	if err != nil {
		return err
	}
	if !Valid(tok) {
		return fmt.Errorf("generator produced malformed token (len=%d)", len(tok))
	}
	return nil
}

// Valid reports whether s has the shape of a generated token. It does not say
// anything about whether a session exists for it.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
