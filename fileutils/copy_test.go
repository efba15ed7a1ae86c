package fileutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile_PreservesContentAndLeavesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")
	if err := os.WriteFile(src, []byte("paper bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(dst, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "paper bytes" {
		t.Errorf("got %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected source to remain after copy: %v", err)
	}
}

func TestMoveFile_RemovesSourceAfterSuccessfulMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")
	if err := os.WriteFile(src, []byte("paper bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(dst, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source removed after move, stat err = %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "paper bytes" {
		t.Errorf("got %q", got)
	}
}

func TestCopyFile_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "dst.pdf"), filepath.Join(dir, "nonexistent.pdf")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
