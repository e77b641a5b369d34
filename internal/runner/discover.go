package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNoInput = errors.New("no manuscript files found")

// Discover resolves target into the list of manuscript files to lint. A
// single file must be Markdown. A directory yields its Markdown files,
// walked recursively when asked; dot-directories and the directories named
// in skip (the output directory, typically) are never entered. The result
// is in case-insensitive path order so runs are deterministic across
// filesystems.
func Discover(target string, recursive bool, skip ...string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat target: %w", err)
	}

	if !info.IsDir() {
		if !isMarkdown(target) {
			return nil, fmt.Errorf("%s is not a Markdown manuscript", target)
		}
		return []string{target}, nil
	}

	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		if name != "" {
			skipped[filepath.Base(name)] = true
		}
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == target {
				return nil
			}
			base := d.Name()
			if strings.HasPrefix(base, ".") || skipped[base] {
				return filepath.SkipDir
			}
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isMarkdown(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", target, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoInput, target)
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := strings.ToLower(files[i]), strings.ToLower(files[j])
		if a != b {
			return a < b
		}
		return files[i] < files[j]
	})
	return files, nil
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
