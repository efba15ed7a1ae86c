// Package watcher implements the watcher daemon (C11): a single-threaded
// polling observer over the scan directory, singleton discipline (local PID
// file plus an optional remote-host probe), and graceful SIGINT/SIGTERM
// shutdown.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Config controls the observer's polling behavior.
type Config struct {
	ScanDir          string
	LanguagePrefixes []string
	PollInterval     time.Duration
}

// DefaultConfig returns the spec's default ~2s poll interval.
func DefaultConfig(scanDir string, languagePrefixes []string) Config {
	return Config{ScanDir: scanDir, LanguagePrefixes: languagePrefixes, PollInterval: 2 * time.Second}
}

type candidateState struct {
	size        int64
	modTime     time.Time
	stablePolls int
}

// Observer polls ScanDir for eligible, stable PDF files, yielding one path
// at a time in deterministic (lexical) order.
type Observer struct {
	cfg     Config
	pending map[string]candidateState
}

// NewObserver constructs an Observer with empty stability-tracking state.
func NewObserver(cfg Config) *Observer {
	return &Observer{cfg: cfg, pending: make(map[string]candidateState)}
}

// eligible reports whether basename matches one of the configured language
// prefixes and the .pdf suffix, per spec.md §4.11's event filter.
func (o *Observer) eligible(basename string) bool {
	if !strings.HasSuffix(strings.ToLower(basename), ".pdf") {
		return false
	}
	if len(o.cfg.LanguagePrefixes) == 0 {
		return true
	}
	for _, p := range o.cfg.LanguagePrefixes {
		if strings.HasPrefix(basename, p) {
			return true
		}
	}
	return false
}

// Poll performs a single scan pass, updating internal stability counters,
// and returns the paths that have now been observed unchanged (size+mtime)
// across two consecutive polls, in lexical order. A path is removed from
// internal tracking once returned, so the caller is expected to process (or
// otherwise dispose of) it before the next poll sees it again.
func (o *Observer) Poll() ([]string, error) {
	entries, err := os.ReadDir(o.cfg.ScanDir)
	if err != nil {
		return nil, fmt.Errorf("watcher: read scan dir: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	var stable []string

	for _, e := range entries {
		if e.IsDir() {
			// Terminal-state subdirectories (and anything else at this
			// level) are never walked into; the scan dir is flat.
			continue
		}
		if !o.eligible(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			slog.Warn("watcher: stat failed", "name", e.Name(), "err", err)
			continue
		}
		path := filepath.Join(o.cfg.ScanDir, e.Name())
		seen[path] = struct{}{}

		prior, tracked := o.pending[path]
		switch {
		case !tracked:
			o.pending[path] = candidateState{size: info.Size(), modTime: info.ModTime(), stablePolls: 1}
		case prior.size == info.Size() && prior.modTime.Equal(info.ModTime()):
			prior.stablePolls++
			o.pending[path] = prior
			if prior.stablePolls >= 2 {
				stable = append(stable, path)
				delete(o.pending, path)
			}
		default:
			o.pending[path] = candidateState{size: info.Size(), modTime: info.ModTime(), stablePolls: 1}
		}
	}

	for path := range o.pending {
		if _, ok := seen[path]; !ok {
			delete(o.pending, path)
		}
	}

	sort.Strings(stable)
	return stable, nil
}

// Run blocks, polling at the configured interval and invoking handle for
// each stable file one at a time (single-threaded per spec.md §5), until ctx
// is cancelled or handle requests a stop.
func (o *Observer) Run(ctx context.Context, handle func(ctx context.Context, path string) error) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stable, err := o.Poll()
			if err != nil {
				slog.Error("watcher: poll failed", "err", err)
				continue
			}
			for _, path := range stable {
				if err := handle(ctx, path); err != nil {
					slog.Error("watcher: handler failed", "path", path, "err", err)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
		}
	}
}

// RemoteSingleton probes a remote host to avoid two machines attached to the
// same bibliographic store processing simultaneously.
type RemoteSingleton struct {
	Host    string // host:port
	Timeout time.Duration
}

// Running reports whether a daemon already appears to be active at the
// configured remote host: first a TCP reachability check, then an HTTP GET
// against its health endpoint. An unreachable host is treated as "not
// running" (fail open — the spec only asks this to catch an active peer,
// not to gate startup on network flakiness).
func (r RemoteSingleton) Running(ctx context.Context) bool {
	if r.Host == "" {
		return false
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	conn, err := net.DialTimeout("tcp", r.Host, timeout)
	if err != nil {
		return false
	}
	conn.Close()

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+r.Host+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
