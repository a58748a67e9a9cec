// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover finds the numbered notebooks that make up a report.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// notebookPattern matches numbered notebooks: a leading digit, .ipynb suffix.
var notebookPattern = regexp.MustCompile(`^[0-9].*\.ipynb$`)

// Notebooks returns the numbered notebook paths in dir, sorted
// lexicographically. With zero-padded prefixes this is reading order.
// A missing directory yields no paths and no error.
func Notebooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading notebooks directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if notebookPattern.MatchString(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
