package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/licenselab/packscan/archive"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_CollectsArchivesRecursively(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "lib-a-1.0.jar"))
	touch(t, filepath.Join(root, "modules", "lib-b-2.0.mar"))
	touch(t, filepath.Join(root, "modules", "deep", "lib-c-3.0.jar"))
	touch(t, filepath.Join(root, "README.txt"))
	touch(t, filepath.Join(root, "modules", "notes.md"))

	w := &archive.Walker{}
	got, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := make([]string, len(got))
	for i, p := range got {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)

	want := []string{"lib-a-1.0.jar", "lib-b-2.0.mar", "lib-c-3.0.jar"}
	if len(names) != len(want) {
		t.Fatalf("found %d archives, want %d: %v", len(names), len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("archive %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	w := &archive.Walker{}
	if _, err := w.Walk(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWalker_RootIsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pack.zip")
	touch(t, file)

	w := &archive.Walker{}
	if _, err := w.Walk(file); !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-directory root, got %v", err)
	}
}

func TestWalker_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "plugin.war"))
	touch(t, filepath.Join(root, "lib-a-1.0.jar"))

	w := &archive.Walker{Extensions: []string{".war"}}
	got, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "plugin.war" {
		t.Fatalf("unexpected result: %v", got)
	}
}
