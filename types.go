package main

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how a folder is discovered and annotated.
type Mode string

const (
	ModeText      Mode = "text"      // immediate regular files of the folder
	ModeXML       Mode = "xml"       // immediate .xml files of the folder
	ModeRecursive Mode = "recursive" // every regular file below the folder
)

var (
	// ErrInvalidMode is returned for a mode other than text, xml or recursive.
	ErrInvalidMode = errors.New("invalid merge mode")
	// ErrSourceNotDir is returned when the source path is not a directory.
	ErrSourceNotDir = errors.New("source is not a directory")
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeText, ModeXML, ModeRecursive:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (use text, xml or recursive)", ErrInvalidMode, s)
	}
}

// MergeRequest describes one merge invocation.
type MergeRequest struct {
	Source      string
	Destination string
	Metadata    string // written verbatim at the start of each flat-mode block
	Mode        Mode
}

// SourceEntry is a file discovered below the request's Source.
type SourceEntry struct {
	Name    string
	Path    string
	RelPath string // slash-separated, relative to Source
}

// EntryResult records what happened to one visited entry.
type EntryResult struct {
	Entry  SourceEntry
	Bytes  int64 // decoded bytes written for the body
	Tokens int   // populated when token counting is enabled
	Err    error // non-nil when the entry could not be read

	// Body is the exact body written to the destination. It is only kept
	// when the Merger was built WithRetainedBodies.
	Body []byte
}

// MergeResult summarizes a finished merge.
type MergeResult struct {
	Mode         Mode
	FilesMerged  int
	FilesVisited int
	Destination  string
	TotalBytes   int64
	TotalTokens  int
	Entries      []EntryResult
}

// Failed returns the entries that were visited but not merged.
func (r MergeResult) Failed() []EntryResult {
	var failed []EntryResult
	for _, e := range r.Entries {
		if e.Err != nil {
			failed = append(failed, e)
		}
	}
	return failed
}

// String returns the report shown to the user after a merge.
func (r MergeResult) String() string {
	switch r.Mode {
	case ModeXML:
		return fmt.Sprintf("Successfully merged %d XML files into %s", r.FilesMerged, r.Destination)
	case ModeRecursive:
		return fmt.Sprintf("Successfully merged %d files recursively into %s", r.FilesMerged, r.Destination)
	default:
		return fmt.Sprintf("Successfully merged %d files into %s", r.FilesMerged, r.Destination)
	}
}
