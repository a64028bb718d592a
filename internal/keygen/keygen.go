// Package keygen generates random keys suitable for secrets such as
// encryption keys and API tokens.
package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-secure-stdlib/base62"
)

// DefaultLength is the key length used when none is given.
const DefaultLength = 32

var (
	// ErrNegativeLength is returned when a negative key length is requested.
	ErrNegativeLength = errors.New("key length must not be negative")

	// ErrRandomSource is wrapped by every failure to read randomness.
	ErrRandomSource = errors.New("secure random source unavailable")
)

// Generate returns a key of the given length drawn uniformly from
// Alphanumeric using crypto/rand.
func Generate(length int) (string, error) {
	return GenerateWithReader(length, rand.Reader)
}

// GenerateWithReader is Generate with an explicit random source.
func GenerateWithReader(length int, r io.Reader) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeLength, length)
	}

	// base62 panics on a negative batch, and its output for 0 is "".
	key, err := base62.RandomWithReader(length, r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return key, nil
}
