package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanceledContextIsDone(t *testing.T) {
	ctx := CanceledContext()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected canceled context")
	}
}

func TestMustWriteFileModeCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lib.rs")
	MustWriteFileMode(t, path, "fn f() {}", 0o644)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o644 {
		t.Fatalf("expected 0644, got %o", got)
	}
}

func TestWriteTreeReturnsSortedPaths(t *testing.T) {
	root := t.TempDir()
	paths := WriteTree(t, root, map[string]string{
		"src/z.rs":     "z",
		"src/a/mod.rs": "a",
		"Cargo.toml":   "[package]",
	})
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %v", paths)
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1] > paths[i] {
			t.Fatalf("expected sorted paths, got %v", paths)
		}
	}
	data, err := os.ReadFile(filepath.Join(root, "src", "a", "mod.rs"))
	if err != nil || string(data) != "a" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
}

func TestNewCrateAndSymlink(t *testing.T) {
	root := NewCrate(t, map[string]string{"src/lib.rs": "fn f() {}"})
	link := filepath.Join(root, "alias", "lib.rs")
	MustSymlink(t, filepath.Join(root, "src", "lib.rs"), link)

	data, err := os.ReadFile(link)
	if err != nil {
		t.Fatalf("read through symlink: %v", err)
	}
	if string(data) != "fn f() {}" {
		t.Fatalf("unexpected content: %q", data)
	}
}
