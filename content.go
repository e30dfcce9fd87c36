package main

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decoderFunc returns a fresh decoder for one source file.
type decoderFunc func() transform.Transformer

// utf8SigDecoder strips a leading UTF-8 byte order mark and replaces
// invalid sequences with U+FFFD.
func utf8SigDecoder() transform.Transformer {
	return unicode.UTF8BOM.NewDecoder()
}

// utf8Decoder replaces invalid sequences with U+FFFD and keeps any BOM.
func utf8Decoder() transform.Transformer {
	return unicode.UTF8.NewDecoder()
}

// ContentConverter rewrites the decoded body of selected entries before
// they are written to the destination.
type ContentConverter interface {
	Applies(e SourceEntry) bool
	Convert(e SourceEntry, body []byte) ([]byte, error)
}

// trackingWriter remembers the first write error so that a failed copy can
// be attributed to the destination rather than the source.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// copyDecoded streams r through dec into w. Source-side failures are
// returned as readErr; a failed write is returned as writeErr.
func copyDecoded(w io.Writer, r io.Reader, dec transform.Transformer) (n int64, readErr, writeErr error) {
	tw := &trackingWriter{w: w}
	n, err := io.Copy(tw, transform.NewReader(r, dec))
	if err == nil {
		return n, nil, nil
	}
	if tw.err != nil {
		return n, nil, tw.err
	}
	return n, err, nil
}

// readDecoded reads all of r through dec.
func readDecoded(r io.Reader, dec transform.Transformer) ([]byte, error) {
	return io.ReadAll(transform.NewReader(r, dec))
}
