package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// DiscoveryOptions narrows which files a merge visits.
// The zero value keeps every regular file, which is the default behavior.
type DiscoveryOptions struct {
	RespectGitignore bool
	SkipHidden       bool
	Include          []string // glob patterns matched against the base name
	Exclude          []string
	Languages        *LoadedLanguageData // when set, only files of a known language are kept
}

// discoverFunc lists the entries of root in merge order.
type discoverFunc func(root string, opts DiscoveryOptions, logger *slog.Logger) ([]SourceEntry, error)

// flatDiscovery lists the immediate regular files of root accepted by keep.
func flatDiscovery(keep func(name string) bool) discoverFunc {
	return func(root string, opts DiscoveryOptions, logger *slog.Logger) ([]SourceEntry, error) {
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("error listing directory %s: %w", root, err)
		}
		matcher := loadIgnoreMatcher(root, opts, logger)

		var entries []SourceEntry
		for _, d := range dirEntries {
			name := d.Name()
			path := filepath.Join(root, name)
			if !isRegularFile(path, d) {
				continue
			}
			if keep != nil && !keep(name) {
				continue
			}
			if !opts.keepFile(name, name, matcher, logger) {
				continue
			}
			entries = append(entries, SourceEntry{Name: name, Path: path, RelPath: name})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
		return entries, nil
	}
}

// recursiveDiscovery walks root top-down. Each directory contributes its
// files sorted by name before its subdirectories are visited in name order.
// Directory symlinks are not followed.
func recursiveDiscovery(root string, opts DiscoveryOptions, logger *slog.Logger) ([]SourceEntry, error) {
	matcher := loadIgnoreMatcher(root, opts, logger)
	var entries []SourceEntry

	var walk func(dir string) error
	walk = func(dir string) error {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			if dir == root {
				return fmt.Errorf("error walking directory %s: %w", root, err)
			}
			logger.Warn("skipping unreadable directory", "path", dir, "error", err)
			return nil
		}

		var files []SourceEntry
		var subdirs []string
		for _, d := range dirEntries {
			name := d.Name()
			path := filepath.Join(dir, name)
			rel, _ := filepath.Rel(root, path)

			if d.IsDir() {
				if opts.skipDir(rel, name, matcher) {
					continue
				}
				subdirs = append(subdirs, path)
				continue
			}
			if !isRegularFile(path, d) {
				continue
			}
			if !opts.keepFile(rel, name, matcher, logger) {
				continue
			}
			files = append(files, SourceEntry{Name: name, Path: path, RelPath: filepath.ToSlash(rel)})
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].Name < files[j].Name
		})
		sort.Strings(subdirs)
		entries = append(entries, files...)

		for _, sub := range subdirs {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadIgnoreMatcher returns the root .gitignore matcher, or nil when
// gitignore handling is off or no usable file exists.
func loadIgnoreMatcher(root string, opts DiscoveryOptions, logger *slog.Logger) gitignore.IgnoreMatcher {
	if !opts.RespectGitignore {
		return nil
	}
	// Only the root .gitignore is honored; nested ones are not merged in.
	gitIgnorePath := filepath.Join(root, ".gitignore")
	f, err := os.Open(gitIgnorePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read .gitignore", "path", gitIgnorePath, "error", err)
		}
		return nil
	}
	defer f.Close()
	// Matched paths are relative to root, so the matcher base is ".".
	return gitignore.NewGitIgnoreFromReader(".", f)
}

// skipDir reports whether a directory (rel is relative to the walk root)
// is pruned from a recursive walk.
func (o DiscoveryOptions) skipDir(rel, name string, matcher gitignore.IgnoreMatcher) bool {
	if o.SkipHidden && isHidden(name) {
		return true
	}
	if matcher != nil && matcher.Match(rel, true) {
		return true
	}
	excluded, _ := matchesAnyPattern(name, o.Exclude)
	return excluded
}

// keepFile applies hidden, gitignore, exclude, include and language filters.
// Pattern errors are logged and the offending pattern treated as a non-match.
func (o DiscoveryOptions) keepFile(rel, name string, matcher gitignore.IgnoreMatcher, logger *slog.Logger) bool {
	if o.SkipHidden && isHidden(name) {
		return false
	}
	if matcher != nil && matcher.Match(rel, false) {
		return false
	}

	excluded, err := matchesAnyPattern(name, o.Exclude)
	if err != nil {
		logger.Warn("exclude pattern error", "file", rel, "error", err)
	}
	if excluded {
		return false
	}

	if len(o.Include) > 0 {
		included, err := matchesAnyPattern(name, o.Include)
		if err != nil {
			logger.Warn("include pattern error", "file", rel, "error", err)
		}
		if !included {
			return false
		}
	}

	if o.Languages != nil {
		if _, known := o.Languages.GetLanguageForFile(name); !known {
			return false
		}
	}
	return true
}

// isRegularFile reports whether d is a regular file, following symlinks.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// parsePatterns splits a comma-separated string of patterns into a slice.
func parsePatterns(patterns string) []string {
	if patterns == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matchesAnyPattern checks if the given name matches any of the provided glob patterns.
func matchesAnyPattern(name string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// isHidden checks if a file name is hidden (starts with '.').
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	baseName := filepath.Base(name)
	return len(baseName) > 0 && baseName[0] == '.'
}
