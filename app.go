package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FGasper/keygen/internal/digest"
	"github.com/FGasper/keygen/internal/keygen"
	"github.com/FGasper/keygen/internal/sealbox"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

var version = "dev"

const keyEnvVar = "ENCRYPTION_KEY"

var (
	errUsage      = errors.New("usage")
	errInvalidKey = errors.New("key is invalid")
	errNoKey      = errors.New("no key given; pass --key or set " + keyEnvVar)

	envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	rand   io.Reader

	level *slog.LevelVar
	log   *slog.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	level := new(slog.LevelVar)
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		rand:   rand.Reader,
		level:  level,
		log:    newLogger(stderr, level),
	}
}

// run executes args and returns the process exit status.
func (a *app) run(ctx context.Context, args []string) int {
	if err := a.command().Run(ctx, args); err != nil {
		a.log.ErrorContext(ctx, "keygen failed.", "error", err)
		return 1
	}
	return 0
}

// usageError replaces urfave's own usage report so each failure is
// reported once, by run.
func usageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return fmt.Errorf("%w: %w (see --help)", errUsage, err)
}

func (a *app) command() *cli.Command {
	cmd := &cli.Command{
		Name:      "keygen",
		Usage:     "print a random key for use as a secret",
		Version:   version,
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "length",
				Aliases: []string{"n"},
				Value:   keygen.DefaultLength,
				Usage:   "key length in characters",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Value:   1,
				Usage:   "number of keys to print, one per line",
			},
			&cli.BoolFlag{
				Name:  "human",
				Usage: "leave out look-alike characters (I l 1 O o 0)",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "print each key as `NAME`=<key>",
			},
			&cli.BoolFlag{
				Name:  "crlf",
				Usage: "end output lines with CRLF",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug detail to stderr",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				a.level.Set(slog.LevelDebug)
			}
			color.NoColor = color.NoColor || !isTerminal(a.stdout)
			return ctx, nil
		},
		OnUsageError: usageError,
		Action:       a.generate,
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "check that a key has the expected length and alphabet",
				ArgsUsage: "[KEY]",
				Flags:     []cli.Flag{keyFlag()},
				Action:    a.check,
			},
			{
				Name:      "encrypt",
				Usage:     "seal text with AES-256-GCM as iv:tag:ciphertext",
				ArgsUsage: "[TEXT]",
				Flags:     []cli.Flag{keyFlag()},
				Action:    a.encrypt,
			},
			{
				Name:      "decrypt",
				Usage:     "open an iv:tag:ciphertext payload",
				ArgsUsage: "[PAYLOAD]",
				Flags:     []cli.Flag{keyFlag()},
				Action:    a.decrypt,
			},
			{
				Name:      "hash",
				Usage:     "print the SHA-256 hex digest of text",
				ArgsUsage: "[TEXT]",
				Action:    a.hash,
			},
		},
	}
	for _, sub := range cmd.Commands {
		sub.OnUsageError = usageError
	}
	return cmd
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "32-character key",
		Sources: cli.EnvVars(keyEnvVar),
	}
}

func alphabetFor(cmd *cli.Command) keygen.Alphabet {
	if cmd.Bool("human") {
		return keygen.Human
	}
	return keygen.Alphanumeric
}

// output returns the writer for command results.
func (a *app) output(cmd *cli.Command) io.Writer {
	if cmd.Bool("crlf") {
		return newLineWriter(a.stdout)
	}
	return a.stdout
}

// input returns the first argument, or stdin without its trailing newline.
func (a *app) input(cmd *cli.Command) (string, error) {
	if cmd.Args().Present() {
		return cmd.Args().First(), nil
	}
	raw, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

func (a *app) generate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Present() {
		return fmt.Errorf("unexpected argument %q", cmd.Args().First())
	}

	length := int(cmd.Int("length"))
	count := int(cmd.Int("count"))
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	name := cmd.String("env")
	if name != "" && !envNamePattern.MatchString(name) {
		return fmt.Errorf("%q is not a valid environment variable name", name)
	}

	alphabet := alphabetFor(cmd)
	out := a.output(cmd)

	for range count {
		key, err := alphabet.GenerateWithReader(length, a.rand)
		if err != nil {
			return fmt.Errorf("generating key: %w", err)
		}
		if name != "" {
			key = name + "=" + key
		}
		if _, err := fmt.Fprintln(out, key); err != nil {
			return err
		}
	}

	a.log.DebugContext(ctx, "Generated keys.", "count", count, "length", length, "alphabetSize", alphabet.Size())
	return nil
}

func (a *app) keyArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Present() {
		return cmd.Args().First(), nil
	}
	if key := cmd.String("key"); key != "" {
		return key, nil
	}
	return "", errNoKey
}

func (a *app) check(ctx context.Context, cmd *cli.Command) error {
	key, err := a.keyArg(cmd)
	if err != nil {
		return err
	}

	length := int(cmd.Int("length"))
	out := a.output(cmd)

	problems := alphabetFor(cmd).Validate(key, length)
	if len(problems) == 0 {
		_, err := fmt.Fprintln(out, color.GreenString("ok"))
		return err
	}

	for _, p := range problems {
		fmt.Fprintln(out, color.RedString(p))
	}
	a.log.DebugContext(ctx, "Key failed checks.", "problems", len(problems))
	return errInvalidKey
}

func (a *app) box(cmd *cli.Command) (*sealbox.Box, error) {
	key := cmd.String("key")
	if key == "" {
		return nil, errNoKey
	}
	return sealbox.NewWithReader([]byte(key), a.rand)
}

func (a *app) encrypt(ctx context.Context, cmd *cli.Command) error {
	box, err := a.box(cmd)
	if err != nil {
		return err
	}
	text, err := a.input(cmd)
	if err != nil {
		return err
	}

	sealed, err := box.Seal(text)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	_, err = fmt.Fprintln(a.output(cmd), sealed)
	return err
}

func (a *app) decrypt(ctx context.Context, cmd *cli.Command) error {
	box, err := a.box(cmd)
	if err != nil {
		return err
	}
	payload, err := a.input(cmd)
	if err != nil {
		return err
	}

	text, err := box.Open(payload)
	if err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	_, err = fmt.Fprintln(a.output(cmd), text)
	return err
}

func (a *app) hash(ctx context.Context, cmd *cli.Command) error {
	text, err := a.input(cmd)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.output(cmd), digest.SHA256Hex(text))
	return err
}
