package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCandidateDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/x.txt": "", "a/b/y.txt": "", ".hidden/z.txt": "", "top.txt": ""})

	dirs, err := listCandidateDirs(root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, dirs)

	dirs, err = listCandidateDirs(root, true)
	require.NoError(t, err)
	assert.Contains(t, dirs, filepath.Join(root, ".hidden"))
}
