// scanbibd runs the watcher daemon in the foreground: poll the scan
// directory, cascade every stable PDF through identifier/catalog/parser/
// oracle extraction, and drive the interactive approval flow over stdio.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jmoore/scanbib/config"
	"github.com/jmoore/scanbib/daemon"
)

var (
	debug      = flag.Bool("debug", false, "switch to log level DEBUG")
	logFile    = flag.String("logfile", "", "structured log output file, stderr if empty")
	healthAddr = flag.String("health-addr", "127.0.0.1:0", "address for the /healthz liveness endpoint peers probe")
)

const programSubstring = "scanbibd"

func main() {
	flag.Parse()
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("exiting: cannot load config", "err", err)
		os.Exit(1)
	}

	pidFile := daemon.DefaultPIDFile(cfg)
	os.Exit(daemon.RunForeground(cfg, pidFile, *healthAddr, programSubstring, os.Stdin, os.Stdout))
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	var h slog.Handler
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal(err)
		}
		h = slog.NewJSONHandler(f, &slog.HandlerOptions{Level: logLevel})
	} else {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(h))
}
