package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates the walk root does not exist or is not a directory.
var ErrNotFound = errors.New("not found")

// Walker locates archive files under a directory tree.
// It traverses all subdirectories but never descends into archives.
type Walker struct {
	// Extensions is the set of archive extensions to collect.
	// Empty means DefaultExtensions.
	Extensions []string
}

// Walk returns the paths of all archive files reachable from root.
// Traversal is a stack-based depth-first walk; result ordering is
// unspecified. Returns ErrNotFound when root is missing or not a directory.
func (w *Walker) Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("walk root %q: %w", root, ErrNotFound)
	}

	exts := w.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var archives []string
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %q: %w", dir, err)
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, path)
				continue
			}
			if hasExtension(entry.Name(), exts) {
				archives = append(archives, path)
			}
		}
	}
	return archives, nil
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
