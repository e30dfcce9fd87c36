package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// strategy is what differs between the merge modes.
type strategy struct {
	discover discoverFunc
	annotate annotator
	decoder  decoderFunc
}

var strategies = map[Mode]strategy{
	ModeText: {
		discover: flatDiscovery(nil),
		annotate: textAnnotator{},
		decoder:  utf8SigDecoder,
	},
	ModeXML: {
		discover: flatDiscovery(func(name string) bool { return strings.HasSuffix(name, ".xml") }),
		annotate: xmlAnnotator{},
		decoder:  utf8SigDecoder,
	},
	ModeRecursive: {
		discover: recursiveDiscovery,
		annotate: recursiveAnnotator{},
		decoder:  utf8Decoder,
	},
}

// Merger concatenates the files of a folder into one annotated file.
// Each Merge call runs synchronously and owns its destination file.
type Merger struct {
	now       func() time.Time
	logger    *slog.Logger
	tokenizer Tokenizer
	converter ContentConverter
	discovery DiscoveryOptions
	retain    bool
	open      func(name string) (io.ReadCloser, error)
}

// Option configures a Merger.
type Option func(*Merger)

// WithClock sets the clock used for Retrieved Date fields.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

// WithLogger sets the logger for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) { m.logger = logger }
}

// WithTokenizer enables per-entry token counting.
func WithTokenizer(tk Tokenizer) Option {
	return func(m *Merger) { m.tokenizer = tk }
}

// WithConverter rewrites matching entries before they are written.
func WithConverter(c ContentConverter) Option {
	return func(m *Merger) { m.converter = c }
}

// WithDiscovery sets the discovery filters.
func WithDiscovery(opts DiscoveryOptions) Option {
	return func(m *Merger) { m.discovery = opts }
}

// WithRetainedBodies keeps each written body in EntryResult.Body, for
// callers that render the merge again (PDF export).
func WithRetainedBodies() Option {
	return func(m *Merger) { m.retain = true }
}

// NewMerger returns a Merger using the local clock and a discarding logger.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		open:   func(name string) (io.ReadCloser, error) { return os.Open(name) },
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// MergeTextFiles merges the immediate files of source into destination.
func (m *Merger) MergeTextFiles(source, destination, metadata string) (MergeResult, error) {
	return m.Merge(MergeRequest{Source: source, Destination: destination, Metadata: metadata, Mode: ModeText})
}

// MergeXMLFiles merges the immediate .xml files of source into destination.
func (m *Merger) MergeXMLFiles(source, destination, metadata string) (MergeResult, error) {
	return m.Merge(MergeRequest{Source: source, Destination: destination, Metadata: metadata, Mode: ModeXML})
}

// MergeFilesRecursive merges every file below source into destination.
// The metadata template is not written in this mode.
func (m *Merger) MergeFilesRecursive(source, destination, metadata string) (MergeResult, error) {
	return m.Merge(MergeRequest{Source: source, Destination: destination, Metadata: metadata, Mode: ModeRecursive})
}

// MergeTextFiles merges with a default Merger.
func MergeTextFiles(source, destination, metadata string) (MergeResult, error) {
	return NewMerger().MergeTextFiles(source, destination, metadata)
}

// MergeXMLFiles merges with a default Merger.
func MergeXMLFiles(source, destination, metadata string) (MergeResult, error) {
	return NewMerger().MergeXMLFiles(source, destination, metadata)
}

// MergeFilesRecursive merges with a default Merger.
func MergeFilesRecursive(source, destination, metadata string) (MergeResult, error) {
	return NewMerger().MergeFilesRecursive(source, destination, metadata)
}

// Merge runs one merge to completion. Entries that cannot be read are
// recorded in the result and replaced by a placeholder in the output; only
// source, destination and mode problems are returned as errors.
func (m *Merger) Merge(req MergeRequest) (MergeResult, error) {
	s, ok := strategies[req.Mode]
	if !ok {
		return MergeResult{}, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	info, err := os.Stat(req.Source)
	if err != nil {
		return MergeResult{}, fmt.Errorf("error accessing source %s: %w", req.Source, err)
	}
	if !info.IsDir() {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrSourceNotDir, req.Source)
	}

	entries, err := s.discover(req.Source, m.discovery, m.logger)
	if err != nil {
		return MergeResult{}, err
	}
	entries = m.withoutDestination(entries, req.Destination)
	m.logger.Debug("discovered entries", "source", req.Source, "mode", req.Mode, "count", len(entries))

	out, err := os.OpenFile(req.Destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return MergeResult{}, fmt.Errorf("error opening destination %s: %w", req.Destination, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	result := MergeResult{Mode: req.Mode, Destination: req.Destination}

	for _, e := range entries {
		er, err := m.mergeEntry(w, s, e, req.Metadata)
		if err != nil {
			return MergeResult{}, fmt.Errorf("error writing %s: %w", req.Destination, err)
		}
		result.FilesVisited++
		result.Entries = append(result.Entries, er)
		if er.Err != nil {
			m.logger.Warn("could not read file", "file", e.RelPath, "error", er.Err)
			continue
		}
		result.FilesMerged++
		result.TotalBytes += er.Bytes
		result.TotalTokens += er.Tokens
	}

	if err := w.Flush(); err != nil {
		return MergeResult{}, fmt.Errorf("error writing %s: %w", req.Destination, err)
	}
	if err := out.Close(); err != nil {
		return MergeResult{}, fmt.Errorf("error closing %s: %w", req.Destination, err)
	}

	m.logger.Info("merge finished", "destination", req.Destination, "merged", result.FilesMerged, "visited", result.FilesVisited)
	return result, nil
}

// mergeEntry writes one annotated block. The returned error is a
// destination failure; source failures are reported in EntryResult.Err.
func (m *Merger) mergeEntry(w io.Writer, s strategy, e SourceEntry, metadata string) (EntryResult, error) {
	res := EntryResult{Entry: e}
	if err := s.annotate.header(w, e, metadata, m.now()); err != nil {
		return res, err
	}

	in, err := m.open(e.Path)
	if err != nil {
		res.Err = err
		if err := s.annotate.placeholder(w, err); err != nil {
			return res, err
		}
		return res, s.annotate.footer(w)
	}
	defer in.Close()

	var counter *tokenCounter
	if m.tokenizer != nil {
		counter = newTokenCounter(m.tokenizer)
	}

	if m.buffers(e) {
		err = m.writeBuffered(w, s, in, counter, &res)
	} else {
		var readErr error
		res.Bytes, readErr, err = copyDecoded(counter.tee(w), in, s.decoder())
		if readErr != nil {
			res.Err = readErr
			if res.Bytes > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return res, err
				}
			}
			err = s.annotate.placeholder(w, readErr)
		}
	}
	if err != nil {
		return res, err
	}
	if counter != nil && res.Err == nil {
		var countErr error
		if res.Tokens, countErr = counter.Count(); countErr != nil {
			m.logger.Warn("token counting failed", "file", e.RelPath, "error", countErr)
		}
	}
	return res, s.annotate.footer(w)
}

// buffers reports whether e must be held in memory before writing.
func (m *Merger) buffers(e SourceEntry) bool {
	return m.retain || (m.converter != nil && m.converter.Applies(e))
}

func (m *Merger) writeBuffered(w io.Writer, s strategy, in io.Reader, counter *tokenCounter, res *EntryResult) error {
	body, err := readDecoded(in, s.decoder())
	if err != nil {
		res.Err = err
		return s.annotate.placeholder(w, err)
	}

	if m.converter != nil && m.converter.Applies(res.Entry) {
		converted, err := m.converter.Convert(res.Entry, body)
		if err != nil {
			m.logger.Warn("conversion failed, writing original content", "file", res.Entry.RelPath, "error", err)
		} else {
			body = converted
		}
	}
	if m.retain {
		res.Body = body
	}

	n, err := counter.tee(w).Write(body)
	res.Bytes = int64(n)
	return err
}

// withoutDestination drops the destination file from entries so a merge
// never reads its own output.
func (m *Merger) withoutDestination(entries []SourceEntry, destination string) []SourceEntry {
	destInfo, err := os.Stat(destination)
	if err != nil {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if info, err := os.Stat(e.Path); err == nil && os.SameFile(info, destInfo) {
			m.logger.Debug("skipping destination inside source", "file", e.RelPath)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
