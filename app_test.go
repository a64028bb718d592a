package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FGasper/keygen/internal/keygen"
	"github.com/FGasper/keygen/internal/sealbox"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ap9qiZEylbDRfdKtJQk7LwWkZ3JLn7Hy"

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

type run struct {
	stdout string
	stderr string
	err    error
}

func runApp(t *testing.T, stdin string, configure func(*app), args ...string) run {
	t.Helper()

	var stdout, stderr bytes.Buffer
	a := newApp(strings.NewReader(stdin), &stdout, &stderr)
	if configure != nil {
		configure(a)
	}

	err := a.command().Run(context.Background(), append([]string{"keygen"}, args...))
	return run{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestBareInvocation(t *testing.T) {
	r := runApp(t, "", nil)
	require.NoError(t, r.err)

	assert.Regexp(t, `^[A-Za-z0-9]{32}\n$`, r.stdout)
	assert.Empty(t, r.stderr)
}

func TestBareInvocationDiffers(t *testing.T) {
	a := runApp(t, "", nil)
	b := runApp(t, "", nil)
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.NotEqual(t, a.stdout, b.stdout)
}

func TestLengthFlag(t *testing.T) {
	for _, n := range []string{"0", "1", "16", "64"} {
		t.Run(n, func(t *testing.T) {
			r := runApp(t, "", nil, "--length", n)
			require.NoError(t, r.err)
			assert.Regexp(t, `^[A-Za-z0-9]{`+n+`}\n$`, r.stdout)
		})
	}
}

func TestLengthIgnoresEnvironment(t *testing.T) {
	for _, v := range []string{"8", "abc"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("KEYGEN_LENGTH", v)

			r := runApp(t, "", nil)
			require.NoError(t, r.err)
			assert.Regexp(t, `^[A-Za-z0-9]{32}\n$`, r.stdout)
		})
	}
}

func TestNegativeLength(t *testing.T) {
	r := runApp(t, "", nil, "--length=-1")
	require.ErrorIs(t, r.err, keygen.ErrNegativeLength)
	assert.Empty(t, r.stdout)
}

func TestBadCount(t *testing.T) {
	r := runApp(t, "", nil, "--count=0")
	require.Error(t, r.err)
	assert.Empty(t, r.stdout)
}

func TestUnexpectedArgument(t *testing.T) {
	r := runApp(t, "", nil, "extra")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "extra")
}

func TestCount(t *testing.T) {
	r := runApp(t, "", nil, "--count", "5", "-n", "8")
	require.NoError(t, r.err)

	keys := lines(r.stdout)
	require.Len(t, keys, 5)
	for _, k := range keys {
		assert.Regexp(t, `^[A-Za-z0-9]{8}$`, k)
	}
	assert.Len(t, lo.Uniq(keys), 5)
}

func TestHuman(t *testing.T) {
	r := runApp(t, "", nil, "--human", "-n", "200")
	require.NoError(t, r.err)

	key := strings.TrimSuffix(r.stdout, "\n")
	assert.Len(t, key, 200)
	assert.Empty(t, keygen.Human.Validate(key, 200))
	assert.NotContains(t, key, "0")
	assert.NotContains(t, key, "l")
}

func TestEnvFormat(t *testing.T) {
	r := runApp(t, "", nil, "--env", "ENCRYPTION_KEY")
	require.NoError(t, r.err)
	assert.Regexp(t, `^ENCRYPTION_KEY=[A-Za-z0-9]{32}\n$`, r.stdout)

	r = runApp(t, "", nil, "--env", "NOT-VALID")
	require.Error(t, r.err)
	assert.Empty(t, r.stdout)
}

func TestCRLF(t *testing.T) {
	r := runApp(t, "", nil, "--crlf", "-c", "2")
	require.NoError(t, r.err)
	assert.Regexp(t, `^[A-Za-z0-9]{32}\r\n[A-Za-z0-9]{32}\r\n$`, r.stdout)
}

func TestDeterministicSource(t *testing.T) {
	src := func(a *app) {
		// base62 indexes A-Za-z0-9 by byte value, and reads
		// length+length/4 bytes per batch.
		a.rand = bytes.NewReader([]byte{1, 2, 3, 10, 36, 0})
	}

	r := runApp(t, "", src, "-n", "5")
	require.NoError(t, r.err)
	assert.Equal(t, "BCDKk\n", r.stdout)
}

func TestRandomSourceFailure(t *testing.T) {
	r := runApp(t, "", func(a *app) { a.rand = failingReader{} })
	require.ErrorIs(t, r.err, keygen.ErrRandomSource)
	assert.Empty(t, r.stdout)
}

func TestVerboseLogs(t *testing.T) {
	r := runApp(t, "", nil, "--verbose")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Generated keys.")
	assert.Len(t, lines(r.stdout), 1)
}

func TestCheck(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")

	r := runApp(t, "", nil, "check", testKey)
	require.NoError(t, r.err)
	assert.Equal(t, "ok\n", r.stdout)

	r = runApp(t, "", nil, "check", "short-key")
	require.ErrorIs(t, r.err, errInvalidKey)
	assert.Len(t, lines(r.stdout), 2)

	r = runApp(t, "", nil, "--length", "5", "check", "abcde")
	require.NoError(t, r.err)

	r = runApp(t, "", nil, "check")
	require.ErrorIs(t, r.err, errNoKey)
}

func TestCheckFromEnv(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	r := runApp(t, "", nil, "check")
	require.NoError(t, r.err)
	assert.Equal(t, "ok\n", r.stdout)
}

func TestEncryptDecrypt(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	r := runApp(t, "", nil, "encrypt", "rahasia")
	require.NoError(t, r.err)
	sealed := strings.TrimSuffix(r.stdout, "\n")
	assert.Len(t, strings.Split(sealed, ":"), 3)

	r = runApp(t, "", nil, "decrypt", sealed)
	require.NoError(t, r.err)
	assert.Equal(t, "rahasia\n", r.stdout)

	// Payload on stdin, as from a pipe.
	r = runApp(t, sealed+"\n", nil, "decrypt")
	require.NoError(t, r.err)
	assert.Equal(t, "rahasia\n", r.stdout)
}

func TestEncryptStdin(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")

	r := runApp(t, "from stdin\n", nil, "encrypt", "--key", testKey)
	require.NoError(t, r.err)

	box := lo.Must(sealbox.New([]byte(testKey)))
	opened, err := box.Open(r.stdout)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", opened)
}

func TestEncryptErrors(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")

	r := runApp(t, "", nil, "encrypt", "text")
	require.ErrorIs(t, r.err, errNoKey)

	r = runApp(t, "", nil, "encrypt", "--key", "too-short", "text")
	require.ErrorIs(t, r.err, sealbox.ErrKeySize)

	r = runApp(t, "", nil, "decrypt", "--key", testKey, "00:11:22")
	require.ErrorIs(t, r.err, sealbox.ErrMalformed)

	sealed := lo.Must(lo.Must(sealbox.New([]byte(testKey))).Seal("x"))
	r = runApp(t, "", nil, "decrypt", "--key", strings.Repeat("z", 32), sealed)
	require.ErrorIs(t, r.err, sealbox.ErrAuthentication)
	assert.Empty(t, r.stdout)
}

func TestHash(t *testing.T) {
	r := runApp(t, "", nil, "hash", "abc")
	require.NoError(t, r.err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad\n", r.stdout)

	r = runApp(t, "abc\n", nil, "hash")
	require.NoError(t, r.err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad\n", r.stdout)
}

func TestUsageErrorWrapped(t *testing.T) {
	r := runApp(t, "", nil, "--length", "abc")
	require.ErrorIs(t, r.err, errUsage)
	assert.Empty(t, r.stdout)
	assert.Empty(t, r.stderr)
}
