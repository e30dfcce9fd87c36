package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// listCandidateDirs returns root and every directory below it, skipping
// hidden directories unless showHidden is set.
func listCandidateDirs(root string, showHidden bool) ([]string, error) {
	candidates := []string{root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root || !d.IsDir() {
			return nil
		}
		if !showHidden && isHidden(d.Name()) {
			return fs.SkipDir
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning for directories: %w", err)
	}
	return candidates, nil
}

// pickSourceDir lets the user choose the folder to merge.
// It returns "" when the selection is aborted.
func pickSourceDir(root string, showHidden bool) (string, error) {
	candidates, err := listCandidateDirs(root, showHidden)
	if err != nil {
		return "", err
	}

	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string { return candidates[i] },
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select the folder to merge. Press Enter to confirm."
			}
			entries, err := os.ReadDir(candidates[i])
			if err != nil {
				return fmt.Sprintf("Path: %s\nError reading directory: %v", candidates[i], err)
			}
			files := 0
			for _, e := range entries {
				if e.Type().IsRegular() {
					files++
				}
			}
			return fmt.Sprintf("Path: %s\nFiles: %d\nEntries: %d", candidates[i], files, len(entries))
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", fmt.Errorf("fuzzy finder error: %w", err)
	}
	return candidates[idx], nil
}
