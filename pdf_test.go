package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickLexer(t *testing.T) {
	assert.Equal(t, "Go", pickLexer("main.go", "package main").Config().Name)
	assert.Equal(t, "XML", pickLexer("feed.xml", "<a/>").Config().Name)
	assert.NotNil(t, pickLexer("no-extension", "plain words"))
}

func TestExportPDF(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"main.go": "package main\n\nfunc main() {}\n", "notes.txt": "café\tnotes"})
	dir := t.TempDir()

	result, err := NewMerger(WithRetainedBodies()).MergeFilesRecursive(src, filepath.Join(dir, "out.txt"), "")
	require.NoError(t, err)
	result.Entries = append(result.Entries, EntryResult{
		Entry: SourceEntry{Name: "gone.txt", RelPath: "gone.txt"},
		Err:   errors.New("denied"),
	})

	pdfPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, exportPDF(result, pdfPath))

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestPDFBodiesMatchMergedOutput(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"page.html": "<html><body><script>alert(1)</script><h1>Title</h1><p>Hello there</p></body></html>",
		"bom.txt":   "\ufeffplain",
	})
	dst := filepath.Join(t.TempDir(), "out.txt")

	m := NewMerger(WithClock(frozenClock), WithConverter(newHTMLConverter()), WithRetainedBodies())
	result, err := m.MergeTextFiles(src, dst, "")
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	bom, err := readEntryForPDF(result.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, "plain", bom)

	page, err := readEntryForPDF(result.Entries[1])
	require.NoError(t, err)
	assert.Contains(t, page, "# Title")
	assert.NotContains(t, page, "<h1>")
	assert.NotContains(t, page, "alert(1)")

	out := readString(t, dst)
	assert.Contains(t, out, textBlock("", "bom.txt", bom))
	assert.Contains(t, out, textBlock("", "page.html", page))

	// Changing the source after the merge does not change what is rendered.
	require.NoError(t, os.WriteFile(filepath.Join(src, "bom.txt"), []byte("changed"), 0o644))
	bom, err = readEntryForPDF(result.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, "plain", bom)
}

func TestPDFBodyOfFailedEntry(t *testing.T) {
	_, err := readEntryForPDF(EntryResult{Err: errors.New("denied")})
	assert.EqualError(t, err, "denied")
}
