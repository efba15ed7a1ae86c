package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jmoore/scanbib/pidfile"
)

// ErrAlreadyRunning is returned by AcquireSingleton when a live, matching
// instance of this daemon already holds the PID file.
var ErrAlreadyRunning = fmt.Errorf("watcher: a matching instance is already running")

// AcquireSingleton implements the local PID-file singleton discipline of
// spec.md §4.11: if the file exists, names a live PID, and that process's
// command line matches programSubstring, refuse to start. Otherwise any
// stale file is replaced with this process's own PID.
func AcquireSingleton(pidFilePath, programSubstring string) error {
	pid, err := pidfile.ReadMatching(pidFilePath, programSubstring)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("watcher: check pid file: %w", err)
	}
	if pid != 0 {
		return ErrAlreadyRunning
	}
	if err := pidfile.Remove(pidFilePath); err != nil {
		return fmt.Errorf("watcher: remove stale pid file: %w", err)
	}
	return pidfile.Write(pidFilePath, os.Getpid(), programSubstring)
}

// ReleaseSingleton removes the PID file on orderly shutdown.
func ReleaseSingleton(pidFilePath string) error {
	return pidfile.Remove(pidFilePath)
}

// HealthServer exposes the /healthz endpoint a peer's RemoteSingleton check
// probes, mirroring the teacher's gorilla/mux router wiring for its own
// spool server.
type HealthServer struct {
	Addr string
	srv  *http.Server
	ln   net.Listener
}

// NewHealthServer builds a router with a single liveness endpoint, wrapped
// in an access-log handler the same way the teacher's spool server logs its
// own HTTP traffic.
func NewHealthServer(addr string) *HealthServer {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	logged := handlers.LoggingHandler(os.Stderr, r)
	return &HealthServer{
		Addr: addr,
		srv:  &http.Server{Addr: addr, Handler: logged},
	}
}

// Start binds the configured address and serves in the background, updating
// Addr to the listener's actual address (useful when Addr was given with an
// ephemeral ":0" port). Failures to bind are returned; failures afterward
// are logged, not fatal, since the health endpoint is advisory (used by
// peers' remote singleton checks) rather than load-bearing for this
// daemon's own operation.
func (h *HealthServer) Start() error {
	ln, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return fmt.Errorf("watcher: health server listen: %w", err)
	}
	h.ln = ln
	h.Addr = ln.Addr().String()
	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("watcher: health server failed", "err", err)
		}
	}()
	return nil
}

// Shutdown stops the health server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.srv.Shutdown(shutdownCtx)
}
