// Package secrets seals short-lived credentials before they are written to the database.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
	prefix    = "sb1:"
)

// ErrInvalidCiphertext is returned when a sealed value cannot be opened with the configured key.
var ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")

// Sealer encrypts values with NaCl secretbox under a single key.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the box key from raw. A 32 byte base64 key is used as-is; anything else is
// hashed with SHA-256 so operators can supply a passphrase.
func NewSealer(raw string) (*Sealer, error) {
	if raw == "" {
		return nil, fmt.Errorf("secrets: encryption key required")
	}
	s := &Sealer{}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == keySize {
		copy(s.key[:], decoded)
		return s, nil
	}
	s.key = sha256.Sum256([]byte(raw))
	return s, nil
}

// Seal returns a printable ciphertext for plaintext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return prefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if len(sealed) <= len(prefix) || sealed[:len(prefix)] != prefix {
		return "", ErrInvalidCiphertext
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed[len(prefix):])
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
