// scanbib is the operator-facing CLI around the watcher daemon: start it as
// a background singleton, run it attached to the current terminal, or stop
// a running instance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmoore/scanbib/config"
	"github.com/jmoore/scanbib/daemon"
	"github.com/jmoore/scanbib/pidfile"
)

const programSubstring = "scanbibd"

var (
	debug      bool
	healthAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "scanbib",
		Short: "Bibliographic PDF ingestion daemon",
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "switch to log level DEBUG")
	root.PersistentFlags().StringVar(&healthAddr, "health-addr", "127.0.0.1:0", "address for the /healthz liveness endpoint peers probe")

	root.AddCommand(startCmd(), daemonCmd(), stopCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// startCmd is the idempotent launcher spec.md §6 describes: run the same
// foreground sequence as "daemon", but AcquireSingleton's ErrAlreadyRunning
// case (exit 0) makes repeated "scanbib start" invocations a no-op rather
// than an error, so it is safe to call from cron or a login script.
func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon if no matching instance is already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground()
		},
	}
}

// daemonCmd runs the daemon attached to the current terminal, for
// interactive use and for the approval prompts to read/write over stdio.
func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the daemon in the foreground, attached to this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground()
		},
	}
}

func runForeground() error {
	setupLogging()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("exiting: cannot load config", "err", err)
		os.Exit(daemon.ExitStartupFailure)
	}
	pidFile := daemon.DefaultPIDFile(cfg)
	os.Exit(daemon.RunForeground(cfg, pidFile, healthAddr, programSubstring, os.Stdin, os.Stdout))
	return nil
}

// stopCmd signals a running instance to shut down: SIGTERM first, giving the
// watcher loop a chance to finish its current file and release the pid file
// cleanly, escalating to SIGKILL if it hasn't exited within the grace
// period.
func stopCmd() *cobra.Command {
	var graceSeconds int
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return stopRunning(daemon.DefaultPIDFile(cfg), time.Duration(graceSeconds)*time.Second)
		},
	}
	cmd.Flags().IntVar(&graceSeconds, "grace", 10, "seconds to wait for SIGTERM before SIGKILL")
	return cmd
}

func stopRunning(pidFile string, grace time.Duration) error {
	return stopRunningWithSubstring(pidFile, grace, programSubstring)
}

func stopRunningWithSubstring(pidFile string, grace time.Duration, substring string) error {
	pid, err := pidfile.ReadMatching(pidFile, substring)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read pid file: %w", err)
	}
	if pid == 0 {
		slog.Info("no matching running instance found")
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal SIGTERM to %d: %w", pid, err)
	}
	slog.Info("sent SIGTERM, waiting for shutdown", "pid", pid, "grace", grace)

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Warn("grace period elapsed, sending SIGKILL", "pid", pid)
			return proc.Signal(syscall.SIGKILL)
		case <-ticker.C:
			if !pidfile.Alive(pid) {
				slog.Info("daemon stopped", "pid", pid)
				return nil
			}
		}
	}
}
