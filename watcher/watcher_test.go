package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPoll_IgnoresNonMatchingPrefixAndNonPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "EN_paper.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "FR_paper.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "EN_notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	o := NewObserver(DefaultConfig(dir, []string{"EN_", "NO_"}))
	if _, err := o.Poll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.pending) != 1 {
		t.Fatalf("expected exactly one tracked candidate, got %d: %v", len(o.pending), o.pending)
	}
	for path := range o.pending {
		if filepath.Base(path) != "EN_paper.pdf" {
			t.Errorf("tracked unexpected file %q", path)
		}
	}
}

func TestPoll_ExcludesTerminalStateDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"done", "failed", "skipped", "manual"} {
		subdir := filepath.Join(dir, sub)
		if err := os.Mkdir(subdir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(subdir, "EN_paper.pdf"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	o := NewObserver(DefaultConfig(dir, []string{"EN_"}))
	if _, err := o.Poll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.pending) != 0 {
		t.Errorf("expected no candidates from subdirectories, got %d", len(o.pending))
	}
}

func TestPoll_RequiresTwoStablePollsBeforeYielding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EN_paper.pdf")
	if err := os.WriteFile(path, []byte("stable content"), 0644); err != nil {
		t.Fatal(err)
	}
	o := NewObserver(DefaultConfig(dir, []string{"EN_"}))

	first, err := o.Poll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("expected no stable files on first poll, got %v", first)
	}

	second, err := o.Poll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 1 || second[0] != path {
		t.Fatalf("expected %q stable on second poll, got %v", path, second)
	}
}

func TestPoll_ResetsStabilityWhenFileChangesBetweenPolls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EN_paper.pdf")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}
	o := NewObserver(DefaultConfig(dir, []string{"EN_"}))
	if _, err := o.Poll(); err != nil {
		t.Fatal(err)
	}

	// File grows between polls (still being written).
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("v1 plus more bytes now"), 0644); err != nil {
		t.Fatal(err)
	}
	stable, err := o.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(stable) != 0 {
		t.Fatalf("expected a size change to reset stability, got %v", stable)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	o := NewObserver(Config{ScanDir: dir, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := o.Run(ctx, func(ctx context.Context, path string) error { return nil })
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRemoteSingleton_EmptyHostIsNeverRunning(t *testing.T) {
	r := RemoteSingleton{}
	if r.Running(context.Background()) {
		t.Error("expected empty host to report not running")
	}
}

func TestRemoteSingleton_HealthyPeerReportsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	r := RemoteSingleton{Host: host, Timeout: time.Second}
	if !r.Running(context.Background()) {
		t.Error("expected healthy peer to report running")
	}
}

func TestRemoteSingleton_UnreachableHostFailsOpen(t *testing.T) {
	r := RemoteSingleton{Host: "127.0.0.1:1", Timeout: 100 * time.Millisecond}
	if r.Running(context.Background()) {
		t.Error("expected unreachable host to report not running")
	}
}
