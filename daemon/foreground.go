package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/cascade"
	"github.com/jmoore/scanbib/catalog"
	"github.com/jmoore/scanbib/catalog/arxiv"
	"github.com/jmoore/scanbib/catalog/crossref"
	"github.com/jmoore/scanbib/catalog/isbn"
	"github.com/jmoore/scanbib/config"
	"github.com/jmoore/scanbib/oracle"
	"github.com/jmoore/scanbib/parser"
	"github.com/jmoore/scanbib/placement"
	"github.com/jmoore/scanbib/store"
	"github.com/jmoore/scanbib/storeapi"
	"github.com/jmoore/scanbib/validator"
	"github.com/jmoore/scanbib/watcher"
)

// Exit codes, shared by every entry point (scanbibd's main and scanbib's
// "daemon"/"start" subcommands) so the process-level contract is defined in
// exactly one place: 0 clean exit or a peer already holds the pid file, 1 a
// startup precondition failed, 2 a remote peer is already active.
const (
	ExitOK             = 0
	ExitStartupFailure = 1
	ExitRemoteActive   = 2
)

// BuildServices wires every cascade/store/catalog/validator dependency from
// a loaded Config into the Services bundle ProcessFile drives.
func BuildServices(cfg *config.Config) (*Services, error) {
	ctx := context.Background()

	st, err := store.Open(ctx, store.DefaultConfig(cfg.Paths.LocalStoreDBPath))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	storeAPICfg := storeapi.DefaultConfig()
	storeAPICfg.APIKey = cfg.APIs.BibliographicAPIKey
	api := storeapi.New(storeAPICfg)

	catalogCfg := catalog.DefaultConfig()
	catalogCfg.PolitenessEmail = cfg.APIs.CrossrefEmail
	catalogs := map[scanbib.IdentifierKind]catalog.Client{
		scanbib.IdentifierDOI:   crossref.New(catalogCfg),
		scanbib.IdentifierArxiv: arxiv.New(catalogCfg),
		scanbib.IdentifierISBN:  isbn.New(catalogCfg),
	}

	parserCfg := parser.DefaultConfig()
	parserCfg.Host = cfg.Grobid.BaseURL()
	parserCfg.MaxPages = cfg.Grobid.MaxPages

	oracleCfg := oracle.DefaultConfig()
	oracleCfg.BaseURL = cfg.Ollama.BaseURL()
	oracleCfg.Model = cfg.Ollama.Model
	if len(cfg.Validator.DenyList) > 0 {
		oracleCfg.DenyListedLiterals = cfg.Validator.DenyList
	}

	pipeline := &cascade.Pipeline{
		MaxPages: cfg.Grobid.MaxPages,
		Catalogs: catalogs,
		Parser:   parser.New(parserCfg),
		Oracle:   oracle.New(oracleCfg),
	}

	authorValidator := validator.New(validator.Config{Kind: validator.KindAuthor, CachePath: cfg.Validator.AuthorCachePath, MaxAge: cfg.Validator.MaxAge})
	journalValidator := validator.New(validator.Config{Kind: validator.KindJournal, CachePath: cfg.Validator.JournalCachePath, MaxAge: cfg.Validator.MaxAge})

	var mountRules []placement.MountTranslation
	for _, m := range cfg.Paths.MountTranslations {
		mountRules = append(mountRules, placement.MountTranslation{LocalPrefix: m.LocalPrefix, HostPrefix: m.HostPrefix, HostStyle: m.HostStyle})
	}

	return &Services{
		Cascade:          pipeline,
		Store:            st,
		StoreAPI:         api,
		Placement:        placement.New(mountRules),
		Catalogs:         catalogs,
		AuthorValidator:  authorValidator,
		JournalValidator: journalValidator,
		PublicationsDir:  cfg.Paths.PublicationsDir,
		ScanDir:          cfg.Paths.ScannerPapersDir,
	}, nil
}

// RunForeground is the single implementation of the watcher daemon's
// foreground lifecycle: singleton acquisition (local pid file, then remote
// peer check), health endpoint, service wiring, and the poll/cascade/approval
// loop until ctx's signal-derived cancellation fires. Both cmd/scanbibd's
// main and cmd/scanbib's "start"/"daemon" subcommands call this so there is
// exactly one startup sequence to reason about.
func RunForeground(cfg *config.Config, pidFile, healthAddr, programSubstring string, in *os.File, out *os.File) int {
	if err := watcher.AcquireSingleton(pidFile, programSubstring); err != nil {
		if err == watcher.ErrAlreadyRunning {
			slog.Info("a matching instance already holds the pid file, exiting")
			return ExitOK
		}
		slog.Error("exiting: cannot acquire singleton", "err", err)
		return ExitStartupFailure
	}
	defer watcher.ReleaseSingleton(pidFile)

	remote := watcher.RemoteSingleton{Host: cfg.Daemon.RemoteCheckHost}
	if remote.Running(context.Background()) {
		slog.Error("exiting: a peer daemon is already active on the configured remote host", "host", cfg.Daemon.RemoteCheckHost)
		return ExitRemoteActive
	}

	health := watcher.NewHealthServer(healthAddr)
	if err := health.Start(); err != nil {
		slog.Error("exiting: cannot start health server", "err", err)
		return ExitStartupFailure
	}
	slog.Info("health endpoint listening", "addr", health.Addr)

	svc, err := BuildServices(cfg)
	if err != nil {
		slog.Error("exiting: cannot build services", "err", err)
		return ExitStartupFailure
	}
	defer svc.Store.Close()

	observer := watcher.NewObserver(watcher.Config{
		ScanDir:          cfg.Paths.ScannerPapersDir,
		LanguagePrefixes: cfg.Language.Enabled,
		PollInterval:     time.Duration(cfg.Daemon.PollIntervalSeconds) * time.Second,
	})

	ctx, stop := watcher.WithSignalCancel(context.Background())
	defer stop()

	slog.Info("scanbib daemon starting", "scan_dir", cfg.Paths.ScannerPapersDir, "publications_dir", cfg.Paths.PublicationsDir)
	handle := ProcessFile(svc, in, out)
	if err := observer.Run(ctx, handle); err != nil && err != context.Canceled {
		slog.Error("watcher loop exited", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health.Shutdown(shutdownCtx)
	slog.Info("scanbib daemon stopped")
	return ExitOK
}

// DefaultPIDFile returns the pid file path scanbibd and the scanbib CLI
// agree on: a dotfile inside the scan directory itself, so a singleton is
// scoped per watched directory rather than global to the machine.
func DefaultPIDFile(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ScannerPapersDir, ".daemon.pid")
}
