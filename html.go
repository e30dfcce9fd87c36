package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// htmlConverter turns .html and .htm entries into Markdown.
type htmlConverter struct {
	conv *md.Converter
}

func newHTMLConverter() *htmlConverter {
	return &htmlConverter{conv: md.NewConverter("", true, nil)}
}

func (h *htmlConverter) Applies(e SourceEntry) bool {
	switch strings.ToLower(filepath.Ext(e.Name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Convert drops script, style and noscript elements, then renders the rest
// of the document as Markdown.
func (h *htmlConverter) Convert(e SourceEntry, body []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", e.RelPath, err)
	}
	doc.Find("script, style, noscript").Remove()
	return []byte(h.conv.Convert(doc.Selection)), nil
}
