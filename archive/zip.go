package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/licenselab/packscan/iox"
)

// ContainsArchive reports whether the zip archive at path holds at least one
// entry with a recognized archive extension, at any depth.
func ContainsArchive(path string, exts []string) (bool, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false, fmt.Errorf("open archive %q: %w", path, err)
	}
	defer iox.DiscardClose(zr)

	for _, f := range zr.File {
		if hasExtension(f.Name, exts) {
			return true, nil
		}
	}
	return false, nil
}

// Unzip extracts every file entry of the archive at src below dst,
// recreating entry paths. Directory entries are skipped; parent directories
// are created as needed. Entries escaping dst are rejected.
func Unzip(src, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", src, err)
	}
	defer iox.DiscardClose(zr)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(f, dst); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dst string) error {
	target := filepath.Join(dst, filepath.FromSlash(f.Name))
	// Entry names are attacker-controlled; keep them below dst.
	if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes extraction root", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer iox.DiscardClose(rc)

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %q: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		iox.DiscardClose(out)
		return fmt.Errorf("extract entry %q: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", target, err)
	}
	return nil
}
