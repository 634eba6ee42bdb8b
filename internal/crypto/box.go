// Package crypto implements authenticated encryption for tenant
// credentials at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	keySize   = 32 // 256-bit key
	nonceSize = 12 // 96-bit IV
	tagSize   = 16 // 128-bit auth tag

	fieldSeparator = "."
)

// ErrInvalidCiphertext is the single opaque error returned for any
// malformed wire-format input or failed tag verification; callers
// never learn which of the three cases occurred.
var ErrInvalidCiphertext = fmt.Errorf("crypto: invalid ciphertext")

// Box performs authenticated symmetric encryption with a process-wide key.
type Box struct {
	aead cipher.AEAD
}

// NewBox constructs a Box from a 32-byte key. The key is typically
// fetched once on first use from a configuration value.
func NewBox(key []byte) (*Box, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new GCM: %w", err)
	}
	if aead.NonceSize() != nonceSize || aead.Overhead() != tagSize {
		return nil, fmt.Errorf("crypto: unexpected AEAD parameters")
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns the three-field wire format:
// base64(iv) + "." + base64(tag) + "." + base64(ciphertext).
func (b *Box) Seal(plaintext []byte) (string, error) {
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: generate iv: %w", err)
	}

	sealed := b.aead.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, fieldSeparator), nil
}

// Open decrypts the three-field wire format produced by Seal. Any
// malformed input (wrong field count, wrong IV/tag length, failed
// verification) returns ErrInvalidCiphertext, never a more specific
// error.
func (b *Box) Open(wire string) ([]byte, error) {
	fields := strings.Split(wire, fieldSeparator)
	if len(fields) != 3 {
		return nil, ErrInvalidCiphertext
	}

	iv, err := base64.StdEncoding.DecodeString(fields[0])
	if err != nil || len(iv) != nonceSize {
		return nil, ErrInvalidCiphertext
	}
	tag, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil || len(tag) != tagSize {
		return nil, ErrInvalidCiphertext
	}
	ciphertext, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := b.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}
