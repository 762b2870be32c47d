package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is the Remote implementation backed by a directory on the host.
// Used by single-host deployments and tests.
type Local struct {
	dir string
}

var _ Remote = (*Local)(nil)

// NewLocal creates the drop directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create drop dir %q: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

// List returns the file names directly inside the drop directory.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list packs in %q: %w", l.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Download copies the named archive to destPath.
func (l *Local) Download(_ context.Context, name, destPath string) error {
	src, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("pack %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("open pack %q: %w", name, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy pack %q: %w", name, err)
	}
	return nil
}

// Delete removes the named archive. No-op when absent.
func (l *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete pack %q: %w", name, err)
	}
	return nil
}
