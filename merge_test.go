package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frozenNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)

func frozenClock() time.Time { return frozenNow }

// writeTree creates files below root; keys are slash-separated relative paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func textBlock(meta, name, body string) string {
	return meta + "\n## Data Block Starts\n## Metadata Start\n## Source Name: " + name +
		"\n## Retrieved Date: 2024-05-01 12:30:00\n## Metadata End\n\n# Data\n" +
		body + "\n\n### Data Block Ends ###\n"
}

func recursiveBlock(rel, name, body string) string {
	return "\n### START OF EXAMPLE | File: " + rel + " ###\n\n## START OF CODE FOR FILE: " + name + " ##\n\n" +
		body + "\n\n## END OF CODE ##\n\n### END OF EXAMPLE ### \n"
}

func TestMergeTextFiles(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"b.txt": "world", "a.txt": "hello"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithClock(frozenClock)).MergeTextFiles(src, dst, "META")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesMerged)
	assert.Equal(t, 2, result.FilesVisited)
	assert.Equal(t, dst, result.Destination)
	assert.Equal(t, int64(len("hello")+len("world")), result.TotalBytes)
	assert.Equal(t, textBlock("META", "a.txt", "hello")+textBlock("META", "b.txt", "world"), readString(t, dst))
	assert.Equal(t, "Successfully merged 2 files into "+dst, result.String())
}

func TestMergeTextFilesSkipsSubdirectories(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "top", "nested/b.txt": "deep"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithClock(frozenClock)).MergeTextFiles(src, dst, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesMerged)
	out := readString(t, dst)
	assert.Contains(t, out, "top")
	assert.NotContains(t, out, "deep")
}

func TestMergeTextFilesEmptyFolder(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger().MergeTextFiles(t.TempDir(), dst, "META")
	require.NoError(t, err)

	assert.Zero(t, result.FilesMerged)
	assert.Empty(t, readString(t, dst))
}

func TestMergeTextFilesCountEqualsFileCount(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"c.md", "a.txt", "b.csv", "e", "d.log"} {
		files[name] = "content of " + name
	}
	writeTree(t, src, files)
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithClock(frozenClock)).MergeTextFiles(src, dst, "M")
	require.NoError(t, err)

	out := readString(t, dst)
	assert.Equal(t, 5, result.FilesMerged)
	assert.Equal(t, 5, strings.Count(out, "## Data Block Starts"))

	var order []string
	for _, er := range result.Entries {
		order = append(order, er.Entry.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.csv", "c.md", "d.log", "e"}, order)
	assert.Less(t, strings.Index(out, "content of a.txt"), strings.Index(out, "content of b.csv"))
	assert.Less(t, strings.Index(out, "content of d.log"), strings.Index(out, "content of e"))
}

func TestMergeXMLFilesFiltersByExtension(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.xml":  "<a/>",
		"b.txt":  "not xml",
		"c.xml":  "<c/>",
		"d.XML":  "<upper/>",
		"e.json": "{}",
	})
	dst := filepath.Join(t.TempDir(), "out.xml")

	result, err := NewMerger(WithClock(frozenClock)).MergeXMLFiles(src, dst, "META")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesMerged)
	want := "META\n<!--\n## XML Data for file: a.xml\n## Retrieved Date: 2024-05-01 12:30:00\n-->\n\n<!-- ## Beginning of XML Data ## -->\n" +
		"<a/>\n\n<!-- ## End of XML Data ## -->\n" +
		"META\n<!--\n## XML Data for file: c.xml\n## Retrieved Date: 2024-05-01 12:30:00\n-->\n\n<!-- ## Beginning of XML Data ## -->\n" +
		"<c/>\n\n<!-- ## End of XML Data ## -->\n"
	assert.Equal(t, want, readString(t, dst))
	assert.Equal(t, "Successfully merged 2 XML files into "+dst, result.String())
}

func TestMergeFilesRecursive(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger().MergeFilesRecursive(src, dst, "META")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesMerged)
	out := readString(t, dst)
	assert.Equal(t, recursiveBlock("a.txt", "a.txt", "alpha")+recursiveBlock("sub/b.txt", "b.txt", "beta"), out)
	assert.NotContains(t, out, "META")
	assert.Equal(t, "Successfully merged 2 files recursively into "+dst, result.String())
}

func TestMergeFilesRecursiveOrder(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"z.txt":            "z",
		"a.txt":            "a",
		"sub/b.txt":        "b",
		"sub/deeper/c.txt": "c",
		"bsub/x.txt":       "x",
	})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger().MergeFilesRecursive(src, dst, "")
	require.NoError(t, err)

	var rels []string
	for _, er := range result.Entries {
		rels = append(rels, er.Entry.RelPath)
	}
	assert.Equal(t, []string{"a.txt", "z.txt", "bsub/x.txt", "sub/b.txt", "sub/deeper/c.txt"}, rels)
}

func TestMergeIsDeterministicWithFrozenClock(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"one.txt": "1", "two.txt": "2", "three.txt": "3"})
	dir := t.TempDir()
	m := NewMerger(WithClock(frozenClock))

	for _, mode := range []Mode{ModeText, ModeXML, ModeRecursive} {
		first := filepath.Join(dir, string(mode)+"-1")
		second := filepath.Join(dir, string(mode)+"-2")
		_, err := m.Merge(MergeRequest{Source: src, Destination: first, Metadata: "M", Mode: mode})
		require.NoError(t, err)
		_, err = m.Merge(MergeRequest{Source: src, Destination: second, Metadata: "M", Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, readString(t, first), readString(t, second), "mode %s", mode)
	}
}

func TestMergeReplacesInvalidUTF8(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "bad.txt"), []byte{'a', 0xff, 'b'}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "good.txt"), []byte("fine"), 0o644))
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithClock(frozenClock)).MergeTextFiles(src, dst, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesMerged)
	out := readString(t, dst)
	assert.Contains(t, out, "a\ufffdb")
	assert.Contains(t, out, "fine")
}

func TestMergeByteOrderMark(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "bom.txt"), []byte("\xEF\xBB\xBFhello"), 0o644))
	dir := t.TempDir()
	m := NewMerger(WithClock(frozenClock))

	flat := filepath.Join(dir, "flat.txt")
	_, err := m.MergeTextFiles(src, flat, "")
	require.NoError(t, err)
	assert.Equal(t, textBlock("", "bom.txt", "hello"), readString(t, flat))

	rec := filepath.Join(dir, "rec.txt")
	_, err = m.MergeFilesRecursive(src, rec, "")
	require.NoError(t, err)
	assert.Contains(t, readString(t, rec), "\n\n\ufeffhello")
}

func failingOpener(failing string, err error) func(string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		if filepath.Base(name) == failing {
			return nil, err
		}
		return os.Open(name)
	}
}

func TestMergeUnreadableFileIsPlaceholder(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello", "b.txt": "secret", "c.txt": "world"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	m := NewMerger(WithClock(frozenClock))
	m.open = failingOpener("b.txt", errors.New("permission denied"))

	result, err := m.MergeTextFiles(src, dst, "META")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesMerged)
	assert.Equal(t, 3, result.FilesVisited)
	require.Len(t, result.Failed(), 1)
	assert.Equal(t, "b.txt", result.Failed()[0].Entry.Name)

	want := textBlock("META", "a.txt", "hello") +
		textBlock("META", "b.txt", "[Error reading file: permission denied]") +
		textBlock("META", "c.txt", "world")
	assert.Equal(t, want, readString(t, dst))
}

func TestMergeUnreadableFileEveryMode(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.xml": "<a/>", "b.xml": "<b/>"})
	dir := t.TempDir()

	m := NewMerger(WithClock(frozenClock))
	m.open = failingOpener("a.xml", errors.New("denied"))

	for _, mode := range []Mode{ModeText, ModeXML, ModeRecursive} {
		dst := filepath.Join(dir, string(mode))
		result, err := m.Merge(MergeRequest{Source: src, Destination: dst, Mode: mode})
		require.NoError(t, err, "mode %s", mode)
		assert.Equal(t, 1, result.FilesMerged, "mode %s", mode)
		assert.Equal(t, 2, result.FilesVisited, "mode %s", mode)

		out := readString(t, dst)
		assert.Contains(t, out, "[Error reading file: denied]", "mode %s", mode)
		assert.Contains(t, out, "<b/>", "mode %s", mode)
	}
}

func TestMergeReadFailureMidFile(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "ignored"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	m := NewMerger(WithClock(frozenClock))
	m.open = func(string) (io.ReadCloser, error) {
		return io.NopCloser(io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("boom")))), nil
	}

	result, err := m.MergeTextFiles(src, dst, "")
	require.NoError(t, err)

	assert.Zero(t, result.FilesMerged)
	assert.Equal(t, textBlock("", "a.txt", "partial\n[Error reading file: boom]"), readString(t, dst))
}

func TestMergeDestinationInMissingDirectory(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello"})
	dst := filepath.Join(t.TempDir(), "missing", "out.txt")

	_, err := NewMerger().MergeTextFiles(src, dst, "")
	require.Error(t, err)
	assert.NoFileExists(t, dst)
}

func TestMergeMissingSourceCreatesNoDestination(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")

	_, err := NewMerger().MergeFilesRecursive(filepath.Join(dir, "nope"), dst, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, dst)
}

func TestMergeSourceIsFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "hello"})

	_, err := NewMerger().MergeTextFiles(filepath.Join(dir, "a.txt"), filepath.Join(dir, "out.txt"), "")
	assert.ErrorIs(t, err, ErrSourceNotDir)
}

func TestMergeInvalidMode(t *testing.T) {
	_, err := NewMerger().Merge(MergeRequest{Source: t.TempDir(), Destination: "x", Mode: "zip"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestMergeSkipsExistingDestinationInsideSource(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello", "out.txt": "stale output"})
	dst := filepath.Join(src, "out.txt")

	for _, mode := range []Mode{ModeText, ModeRecursive} {
		result, err := NewMerger(WithClock(frozenClock)).Merge(MergeRequest{Source: src, Destination: dst, Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, 1, result.FilesMerged, "mode %s", mode)
		out := readString(t, dst)
		assert.Contains(t, out, "hello")
		assert.NotContains(t, out, "stale output")
		assert.NotContains(t, out, "Source Name: out.txt")
	}
}

func TestMergeTruncatesDestination(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello"})
	dst := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(dst, []byte(strings.Repeat("old ", 1000)), 0o644))

	_, err := NewMerger(WithClock(frozenClock)).MergeTextFiles(src, dst, "")
	require.NoError(t, err)
	assert.Equal(t, textBlock("", "a.txt", "hello"), readString(t, dst))
}

type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) (int, error) { return len(strings.Fields(text)), nil }

func TestMergeCountsTokens(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "one two three", "b.txt": "four five"})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithClock(frozenClock), WithTokenizer(wordTokenizer{})).MergeTextFiles(src, dst, "")
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalTokens)
	assert.Equal(t, 3, result.Entries[0].Tokens)
	assert.Equal(t, textBlock("", "a.txt", "one two three")+textBlock("", "b.txt", "four five"), readString(t, dst))
}

func TestMergeConvertsHTML(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"page.html": "<html><head><style>body{color:red}</style><script>alert(1)</script></head>" +
			"<body><h1>Title</h1><p>Hello there</p></body></html>",
		"notes.txt": "<b>kept as is</b>",
	})
	dst := filepath.Join(t.TempDir(), "out.txt")

	result, err := NewMerger(WithConverter(newHTMLConverter())).MergeFilesRecursive(src, dst, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesMerged)

	out := readString(t, dst)
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "Hello there")
	assert.NotContains(t, out, "alert(1)")
	assert.NotContains(t, out, "color:red")
	assert.Contains(t, out, "<b>kept as is</b>")
}

func TestPackageLevelMergeFunctions(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.xml": "<a/>", "b.txt": "b"})
	dir := t.TempDir()

	r, err := MergeTextFiles(src, filepath.Join(dir, "t"), "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.FilesMerged)

	r, err = MergeXMLFiles(src, filepath.Join(dir, "x"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, r.FilesMerged)

	r, err = MergeFilesRecursive(src, filepath.Join(dir, "r"), "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.FilesMerged)
}
