// Package sealbox encrypts short strings with AES-256-GCM.
//
// A sealed payload is three hex fields joined by colons:
//
//	iv:tag:ciphertext
//
// with a 12-byte iv and a 16-byte tag. Keys are the 32 raw bytes of a
// generated key, usually read from ENCRYPTION_KEY.
package sealbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	ivSize  = 12
	tagSize = 16
)

var (
	ErrKeySize        = fmt.Errorf("key must be exactly %d bytes", KeySize)
	ErrMalformed      = errors.New("sealed payload is malformed")
	ErrAuthentication = errors.New("sealed payload failed authentication")
)

// Box seals and opens payloads under a single key.
type Box struct {
	aead cipher.AEAD
	rand io.Reader
}

// New returns a Box for key, drawing IVs from crypto/rand.
func New(key []byte) (*Box, error) {
	return NewWithReader(key, rand.Reader)
}

// NewWithReader returns a Box that draws IVs from r.
func NewWithReader(key []byte, r io.Reader) (*Box, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Box{aead: aead, rand: r}, nil
}

// Seal encrypts plaintext under a fresh IV.
func (b *Box) Seal(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(b.rand, iv); err != nil {
		return "", fmt.Errorf("reading IV: %w", err)
	}

	// GCM appends the tag to the ciphertext.
	sealed := b.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	}, ":"), nil
}

// Open decrypts a payload produced by Seal.
func (b *Box) Open(payload string) (string, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: want 3 fields, got %d", ErrMalformed, len(parts))
	}

	var fields [3][]byte
	for i, p := range parts {
		raw, err := hex.DecodeString(p)
		if err != nil {
			return "", fmt.Errorf("%w: field %d: %w", ErrMalformed, i+1, err)
		}
		fields[i] = raw
	}
	iv, tag, ct := fields[0], fields[1], fields[2]

	if len(iv) != ivSize {
		return "", fmt.Errorf("%w: iv is %d bytes", ErrMalformed, len(iv))
	}
	if len(tag) != tagSize {
		return "", fmt.Errorf("%w: tag is %d bytes", ErrMalformed, len(tag))
	}

	plaintext, err := b.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plaintext), nil
}
