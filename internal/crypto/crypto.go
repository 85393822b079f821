// Package crypto provides authenticated symmetric encryption for
// per-tenant CRM config blobs. The key lives only in the process
// environment; this package never logs plaintext.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrMissingKey    = errors.New("encryption key not configured")
	ErrDecryptFailed = errors.New("crm config decrypt failed")
)

// Sealer encrypts/decrypts CRM config blobs with a single process-wide key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from 32 raw key bytes (base64-decoded
// ENCRYPTION_KEY). Returns ErrMissingKey if key is the wrong length.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrMissingKey
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ErrMissingKey
	}
	return &Sealer{aead: aead}, nil
}

// DecodeKey base64-decodes the ENCRYPTION_KEY environment value.
func DecodeKey(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, ErrMissingKey
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrMissingKey
	}
	return key, nil
}

func (s *Sealer) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt returns ErrDecryptFailed for any malformed or tampered
// ciphertext; it never returns partial plaintext.
func (s *Sealer) Decrypt(ciphertext []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrDecryptFailed
	}
	nonce, body := ciphertext[:n], ciphertext[n:]
	plaintext, err := s.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
