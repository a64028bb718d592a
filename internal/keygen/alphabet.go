package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Alphabet is a set of unique ASCII symbols that keys are drawn from.
type Alphabet string

const (
	// Alphanumeric is A-Z, a-z and 0-9.
	Alphanumeric Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Human leaves out I, l, 1, O, o and 0 so keys survive being read aloud
	// or copied by hand.
	Human Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// ErrBadAlphabet is returned for alphabets that cannot be sampled.
var ErrBadAlphabet = errors.New("alphabet must hold 2 to 256 unique ASCII symbols")

// Size returns the number of symbols.
func (a Alphabet) Size() int {
	return len(a)
}

// Contains reports whether r is one of the alphabet's symbols.
func (a Alphabet) Contains(r rune) bool {
	return r < utf8.RuneSelf && strings.ContainsRune(string(a), r)
}

func (a Alphabet) check() error {
	if len(a) < 2 || len(a) > 256 {
		return ErrBadAlphabet
	}
	seen := make(map[byte]struct{}, len(a))
	for i := 0; i < len(a); i++ {
		c := a[i]
		if c >= utf8.RuneSelf {
			return ErrBadAlphabet
		}
		if _, dup := seen[c]; dup {
			return ErrBadAlphabet
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Generate returns a key of the given length drawn from a using crypto/rand.
func (a Alphabet) Generate(length int) (string, error) {
	return a.GenerateWithReader(length, rand.Reader)
}

// GenerateWithReader returns a key of the given length drawn from a using r.
//
// Alphanumeric keys go through base62. Other alphabets map one random byte
// to one symbol, rejecting bytes at or above the largest multiple of the
// alphabet size so every symbol is equally likely.
func (a Alphabet) GenerateWithReader(length int, r io.Reader) (string, error) {
	if a == Alphanumeric {
		return GenerateWithReader(length, r)
	}
	if length < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeLength, length)
	}
	if err := a.check(); err != nil {
		return "", err
	}

	limit := 256 - 256%len(a)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4)

	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("%w: %w", ErrRandomSource, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, a[int(b)%len(a)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// Validate reports every way key fails to be a key of the given length
// over a. A nil result means the key is valid. A negative length skips the
// length check.
func (a Alphabet) Validate(key string, length int) []string {
	var problems []string

	if n := utf8.RuneCountInString(key); length >= 0 && n != length {
		problems = append(problems, fmt.Sprintf("length is %d, want %d", n, length))
	}

	bad := lo.Uniq(lo.Reject([]rune(key), func(r rune, _ int) bool {
		return a.Contains(r)
	}))
	if len(bad) > 0 {
		quoted := lo.Map(bad, func(r rune, _ int) string {
			return fmt.Sprintf("%q", r)
		})
		problems = append(problems, "characters outside the alphabet: "+strings.Join(quoted, ", "))
	}

	return problems
}
