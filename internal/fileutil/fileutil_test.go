package fileutil

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	data := make([]byte, 64*1024+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, data, 0o640); err != nil {
		t.Fatal(err)
	}

	if err := CopyVerified(src, dst); err != nil {
		t.Fatalf("CopyVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("copied content differs from source")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("expected mode 0640, got %v", info.Mode().Perm())
	}

	if err := CopyVerified(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist when dst exists, got %v", err)
	}
	if after, _ := os.ReadFile(dst); !bytes.Equal(after, data) {
		t.Fatal("existing destination must be left untouched")
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst")
	err := CopyVerified(filepath.Join(dir, "missing"), dst)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected no destination, got %v", err)
	}
}

func TestMoveVerifiedRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveVerified(src, dst); err != nil {
		t.Fatalf("MoveVerified: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected source removed, got %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "payload" {
		t.Fatalf("unexpected destination %q (%v)", got, err)
	}
}

func TestMoveVerifiedKeepsSourceOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "missing-dir", "b")
	if err := MoveVerified(src, dst); err == nil {
		t.Fatal("expected error for unreachable destination")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must survive a failed move: %v", err)
	}
}
