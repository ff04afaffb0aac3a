package osfilesystem

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileSystem_WriteCreatesParentsAndReadsBack(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "session", "frames", "frame-000001.GREY")

	if err := fs.WriteFile(path, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(data, []byte{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", data)
	}
}

func TestFileSystem_WriteReplacesWithoutLeftovers(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")

	fs.WriteFile(path, []byte("frames: 1"))
	if err := fs.WriteFile(path, []byte("frames: 2")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "frames: 2" {
		t.Errorf("expected replaced contents, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, got %v", entries)
	}
}

func TestFileSystem_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame")
	if err := New().WithFileMode(0o600).WriteFile(path, []byte("x")); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestFileSystem_WriteIntoFileFails(t *testing.T) {
	fs := New()
	parent := filepath.Join(t.TempDir(), "plain")
	os.WriteFile(parent, []byte("x"), 0o644)

	if err := fs.WriteFile(filepath.Join(parent, "child"), []byte("y")); err == nil {
		t.Error("expected error when the parent is a file")
	}
}

func TestFileSystem_MkdirAllAndExists(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b")

	exists, err := fs.Exists(dir)
	if err != nil || exists {
		t.Fatalf("expected missing directory, got exists=%v err=%v", exists, err)
	}
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	exists, err = fs.Exists(dir)
	if err != nil || !exists {
		t.Errorf("expected directory to exist, got exists=%v err=%v", exists, err)
	}
}

func TestFileSystem_ListDir(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	for _, name := range []string{"b.png", "a.jpg", ".hidden", "c.png", ".c.png.123"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := fs.ListDir(dir)
	if err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	expected := []string{"a.jpg", "b.png", "c.png"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("expected %v, got %v", expected, names)
	}

	if _, err := fs.ListDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := fs.ListDir(filepath.Join(dir, "a.jpg")); err == nil {
		t.Error("expected error for a file")
	}
}
