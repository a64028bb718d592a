package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/MatusOllah/slogcolor"
	"golang.org/x/term"
)

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	opts := *slogcolor.DefaultOptions
	opts.Level = level
	opts.SrcFileMode = slogcolor.Nop
	opts.NoColor = !isTerminal(w)

	return slog.New(slogcolor.NewHandler(w, &opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
