// Package secrets encrypts integration credentials at rest.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arflow/backend/internal/domain/integration"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	// version prefix lets the key or algorithm change later without
	// guessing how an old value was written
	prefixV1 = "v1:"
)

var (
	ErrMalformedCiphertext = errors.New("secrets: malformed ciphertext")
	ErrDecryptFailed       = errors.New("secrets: decryption failed")
)

// SecretboxCipher seals values with NaCl secretbox (XSalsa20-Poly1305) under
// a single 32-byte key. Output is "v1:" + base64(nonce || box).
type SecretboxCipher struct {
	key  [32]byte
	rand io.Reader
}

// NewSecretboxCipher creates a cipher with key
func NewSecretboxCipher(key [32]byte) *SecretboxCipher {
	return &SecretboxCipher{key: key, rand: rand.Reader}
}

// Encrypt seals plaintext under a fresh random nonce
func (c *SecretboxCipher) Encrypt(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &c.key)
	return prefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (c *SecretboxCipher) Decrypt(ciphertext string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(ciphertext, prefixV1)
	if !ok {
		return nil, ErrMalformedCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrMalformedCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

var _ integration.CredentialCipher = (*SecretboxCipher)(nil)
