package main

import (
	"fmt"
	"io"
	"time"
)

// retrievedDateLayout is the timestamp format of the flat-mode metadata blocks.
const retrievedDateLayout = "2006-01-02 15:04:05"

// annotator writes the text wrapped around each merged entry.
type annotator interface {
	header(w io.Writer, e SourceEntry, metadata string, now time.Time) error
	footer(w io.Writer) error
	// placeholder replaces the body of an entry that could not be read.
	placeholder(w io.Writer, err error) error
}

type textAnnotator struct{}

func (textAnnotator) header(w io.Writer, e SourceEntry, metadata string, now time.Time) error {
	_, err := fmt.Fprintf(w, "%s\n## Data Block Starts\n## Metadata Start\n## Source Name: %s\n## Retrieved Date: %s\n## Metadata End\n\n# Data\n",
		metadata, e.Name, now.Format(retrievedDateLayout))
	return err
}

func (textAnnotator) footer(w io.Writer) error {
	_, err := io.WriteString(w, "\n\n### Data Block Ends ###\n")
	return err
}

func (textAnnotator) placeholder(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "[Error reading file: %v]", err)
	return werr
}

type xmlAnnotator struct{}

func (xmlAnnotator) header(w io.Writer, e SourceEntry, metadata string, now time.Time) error {
	_, err := fmt.Fprintf(w, "%s\n<!--\n## XML Data for file: %s\n## Retrieved Date: %s\n-->\n\n<!-- ## Beginning of XML Data ## -->\n",
		metadata, e.Name, now.Format(retrievedDateLayout))
	return err
}

func (xmlAnnotator) footer(w io.Writer) error {
	_, err := io.WriteString(w, "\n\n<!-- ## End of XML Data ## -->\n")
	return err
}

func (xmlAnnotator) placeholder(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "<!-- [Error reading file: %v] -->", err)
	return werr
}

// recursiveAnnotator labels entries by path only; metadata and time are unused.
type recursiveAnnotator struct{}

func (recursiveAnnotator) header(w io.Writer, e SourceEntry, _ string, _ time.Time) error {
	_, err := fmt.Fprintf(w, "\n### START OF EXAMPLE | File: %s ###\n\n## START OF CODE FOR FILE: %s ##\n\n", e.RelPath, e.Name)
	return err
}

func (recursiveAnnotator) footer(w io.Writer) error {
	_, err := io.WriteString(w, "\n\n## END OF CODE ##\n\n### END OF EXAMPLE ### \n")
	return err
}

func (recursiveAnnotator) placeholder(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "[Error reading file: %v]", err)
	return werr
}
