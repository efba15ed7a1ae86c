package daemon

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jmoore/scanbib/approval"
)

// languageHint extracts the <LANG> prefix from the scanner's
// "<LANG>_<YYYYMMDD>_<HHMMSS>_<N>.pdf" naming convention.
func languageHint(basename string) string {
	if i := strings.IndexByte(basename, '_'); i > 0 {
		return basename[:i]
	}
	return ""
}

// ProcessFile runs one stable file through the full cascade + approval flow,
// reading approval input from in and writing prompts to out. It is the
// handle callback watcher.Observer.Run expects.
func ProcessFile(svc *Services, in io.Reader, out io.Writer) func(ctx context.Context, path string) error {
	return func(ctx context.Context, path string) error {
		hint := languageHint(filepath.Base(path))
		slog.Info("daemon: processing", "path", path, "language_hint", hint)

		session := NewSession(ctx, svc, path, hint, out)
		if session.result.Err != nil {
			slog.Warn("daemon: cascade failed, filing as failed", "path", path, "err", session.result.Err)
			return session.moveTo("failed")
		}

		driver := approval.NewDriver(in, out, &Handler{Session: session})
		final, err := driver.Run(ctx, approval.StateYearConfirm)
		if err != nil {
			slog.Error("daemon: approval flow error", "path", path, "err", err)
			return err
		}
		slog.Info("daemon: finished", "path", path, "final_state", final)
		return nil
	}
}
