package main

import (
	"bytes"
	"io"
)

// crlfWriter rewrites each bare \n to \r\n on the way to out, for .env
// files consumed on Windows.
type crlfWriter struct {
	out io.Writer
}

func newLineWriter(out io.Writer) io.Writer {
	return crlfWriter{out: out}
}

func (w crlfWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// Writes from fmt.Fprintln end in \n, so \r and \n never straddle
	// two calls.
	p2 := bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	p2 = bytes.ReplaceAll(p2, []byte("\n"), []byte("\r\n"))

	if _, err := w.out.Write(p2); err != nil {
		return 0, err
	}

	// The caller only knows about the bytes it handed us.
	return len(p), nil
}
