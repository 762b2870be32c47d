package extract_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/licenselab/packscan/archive"
	"github.com/licenselab/packscan/extract"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/types"
)

// zipBytes builds a zip archive in memory.
func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, body []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
}

func plainManifest() []byte {
	return []byte("Manifest-Version: 1.0\r\n\r\n")
}

func bundleManifest() []byte {
	return []byte("Manifest-Version: 1.0\r\nBundle-ManifestVersion: 2\r\n\r\n")
}

func newEngine(t *testing.T) *extract.Engine {
	t.Helper()
	return &extract.Engine{
		Classifier: &archive.Classifier{VendorName: "acme", VendorPrefix: "org.acme", VendorToken: "acme"},
		Logger:     log.NewPlainLogger().WithOutput(io.Discard),
	}
}

func findByFileName(details *types.PackDetails, fileName string) *types.Library {
	for i := range details.Libraries {
		if details.Libraries[i].FileName == fileName {
			return &details.Libraries[i]
		}
	}
	return nil
}

func TestEngine_CleanAndFaultyRouting(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "myproduct-3.0.0")
	writeFile(t, filepath.Join(root, "lib-foo-2.1.jar"), zipBytes(t, map[string][]byte{
		archive.ManifestPath: plainManifest(),
	}))
	writeFile(t, filepath.Join(root, "modules", "lib-bar.mar"), zipBytes(t, map[string][]byte{
		archive.ManifestPath: plainManifest(),
	}))

	res, err := newEngine(t).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(res.ScratchDir) })

	details := res.Details
	if details.PackName != "myproduct" || details.PackVersion != "3.0.0" {
		t.Errorf("pack = %q/%q, want myproduct/3.0.0", details.PackName, details.PackVersion)
	}

	clean := details.CleanLibs()
	if len(clean) != 1 {
		t.Fatalf("clean set size = %d, want 1", len(clean))
	}
	if clean[0].Name != "lib-foo" || clean[0].Version != "2.1" || clean[0].Type != types.LibraryTypePlain {
		t.Errorf("unexpected clean library: %+v", clean[0])
	}

	faulty := details.FaultyLibs()
	if len(faulty) != 1 {
		t.Fatalf("faulty set size = %d, want 1", len(faulty))
	}
	if faulty[0].FileName != "lib-bar.mar" || faulty[0].ValidName {
		t.Errorf("unexpected faulty library: %+v", faulty[0])
	}
}

func TestEngine_NestedBundle(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "myproduct-3.0.0")

	inner := zipBytes(t, map[string][]byte{archive.ManifestPath: plainManifest()})
	writeFile(t, filepath.Join(root, "bundle-1.0.jar"), zipBytes(t, map[string][]byte{
		archive.ManifestPath: bundleManifest(),
		"lib/inner-4.5.jar":  inner,
	}))

	res, err := newEngine(t).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(res.ScratchDir) })

	details := res.Details
	outer := findByFileName(details, "bundle-1.0.jar")
	if outer == nil {
		t.Fatal("outer bundle not discovered")
	}
	if !outer.IsBundle || outer.Type != types.LibraryTypeBundle {
		t.Errorf("outer = %+v, want bundle", outer)
	}

	innerLib := findByFileName(details, "inner-4.5.jar")
	if innerLib == nil {
		t.Fatal("nested archive not discovered")
	}
	if innerLib.Type != types.LibraryTypeNested {
		t.Errorf("inner type = %v, want %v", innerLib.Type, types.LibraryTypeNested)
	}
	if !innerLib.HasParent() {
		t.Fatal("inner library must reference its parent")
	}
	if parent := details.At(innerLib.Parent); parent == nil || parent.FileName != "bundle-1.0.jar" {
		t.Errorf("inner parent = %+v, want bundle-1.0.jar", parent)
	}
	if len(details.Clean) != 2 {
		t.Errorf("clean slots = %v, want both libraries", details.Clean)
	}
}

func TestEngine_MissingManifestDropped(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "myproduct-3.0.0")
	writeFile(t, filepath.Join(root, "raw-1.0.jar"), zipBytes(t, map[string][]byte{
		"data.txt": []byte("no manifest"),
	}))

	res, err := newEngine(t).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(res.ScratchDir) })

	details := res.Details
	if len(details.Clean) != 0 || len(details.Faulty) != 0 {
		t.Errorf("dropped library appeared in a set: clean=%v faulty=%v", details.Clean, details.Faulty)
	}
	// The record stays in the arena for provenance.
	if len(details.Libraries) != 1 {
		t.Errorf("arena size = %d, want 1", len(details.Libraries))
	}
}

func TestEngine_CorruptArchiveAborts(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "myproduct-3.0.0")
	writeFile(t, filepath.Join(root, "broken-1.0.jar"), []byte("not a zip"))

	_, err := newEngine(t).Run(context.Background(), root)
	var runErr *extract.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}

	// An aborted run must not leave its scratch directory behind.
	entries, readErr := os.ReadDir(base)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 1 || entries[0].Name() != "myproduct-3.0.0" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover entries next to the pack root: %v", names)
	}
}

func TestEngine_MissingRoot(t *testing.T) {
	_, err := newEngine(t).Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain, got %v", err)
	}
}

func TestEngine_Canceled(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "myproduct-3.0.0")
	writeFile(t, filepath.Join(root, "lib-foo-2.1.jar"), zipBytes(t, map[string][]byte{
		archive.ManifestPath: plainManifest(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t).Run(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}
