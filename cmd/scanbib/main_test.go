package main

import (
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoore/scanbib/pidfile"
)

func TestStopRunning_NoPIDFileIsANoOp(t *testing.T) {
	dir := t.TempDir()
	if err := stopRunning(filepath.Join(dir, "missing.pid"), time.Second); err != nil {
		t.Fatalf("expected no-op for missing pid file, got %v", err)
	}
}

func TestStopRunning_SendsSIGTERMAndWaitsForExit(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot spawn sleep for this test environment: %v", err)
	}
	defer cmd.Process.Kill()

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "scanbibd.pid")
	if err := pidfile.Write(pidPath, cmd.Process.Pid, "sleep"); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if err := stopRunningWithSubstring(pidPath, 5*time.Second, "sleep"); err != nil {
		t.Fatalf("stopRunning: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spawned process was not reaped after SIGTERM")
	}

	if pidfile.Alive(cmd.Process.Pid) {
		t.Error("process is still alive after stopRunning returned")
	}
}
