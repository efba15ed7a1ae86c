// Package placement implements the file placement service (C9): deciding
// where a cleared document's final bytes land in the publications
// directory, detecting bit-identical reuse before ever copying, and
// translating the local-mount path into the host-OS path the bibliographic
// store needs for linked-file attachments.
package placement

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoore/scanbib/fileinfo"
	"github.com/jmoore/scanbib/fileutils"
)

// Action is the closed set of outcomes a placement decision can produce.
type Action string

const (
	ActionReuseExisting Action = "reuse_existing"
	ActionWriteNew       Action = "write_new"
	ActionWriteSuffixed  Action = "write_suffixed"
	ActionSkip           Action = "skip"
)

// maxScannedSuffix bounds the "_scanned2", "_scanned3", ... search per
// spec.md §4.9 step 6 ("up to a small bound").
const maxScannedSuffix = 20

// Decision is the outcome of Place: what happened, and the two paths the
// caller needs afterward — the local-mount path for this process's own
// bookkeeping, and the host-OS path for anything (like the bibliographic
// store) viewed from a different OS.
type Decision struct {
	Action            Action
	TargetAbsolutePath string
	CrossBoundaryPath  string
	Err                error
}

// MountTranslation maps a local mount-point prefix to the host-OS prefix a
// different machine/OS view uses for the same storage, per the
// PATHS.mount_translations config section.
type MountTranslation struct {
	LocalPrefix string
	HostPrefix  string
	// HostStyle selects the path separator style for HostPrefix-rooted
	// output: "windows" rewrites the remainder to backslashes, "posix"
	// leaves it as-is.
	HostStyle string
}

// Translator converts local-mount-view absolute paths into the host-OS
// absolute path a remote/bibliographic-store view expects.
type Translator struct {
	Rules []MountTranslation
}

// Translate rewrites localPath using the longest-matching configured
// mount prefix. A path matching no rule is returned unchanged — the
// common case when the watcher and the bibliographic store share one
// filesystem view.
func (t Translator) Translate(localPath string) string {
	var best *MountTranslation
	for i := range t.Rules {
		r := &t.Rules[i]
		if !strings.HasPrefix(localPath, r.LocalPrefix) {
			continue
		}
		if best == nil || len(r.LocalPrefix) > len(best.LocalPrefix) {
			best = r
		}
	}
	if best == nil {
		return localPath
	}
	remainder := strings.TrimPrefix(localPath, best.LocalPrefix)
	if best.HostStyle == "windows" {
		remainder = strings.ReplaceAll(remainder, "/", "\\")
		return strings.TrimRight(best.HostPrefix, "\\") + remainder
	}
	return strings.TrimRight(best.HostPrefix, "/") + remainder
}

// Service places a cleared document's bytes into the publications
// directory, honoring the at-most-once write invariant: identical content
// is never copied twice, and identical-file detection always takes
// precedence over any rename/suffix rule.
type Service struct {
	Translator Translator
}

// New constructs a Service with the given mount translation table.
func New(translations []MountTranslation) *Service {
	return &Service{Translator: Translator{Rules: translations}}
}

// Place implements the spec.md §4.9 algorithm: publications-first reuse
// scan, then candidate/candidate_scanned[N] suffix search, writing only
// when nothing bit-identical already exists.
func (s *Service) Place(sourcePath, proposedFilename, publicationsDir string) Decision {
	srcInfo, err := fileinfo.FromFile(sourcePath)
	if err != nil {
		return Decision{Action: ActionSkip, Err: fmt.Errorf("placement: stat source: %w", err)}
	}

	if existing, err := s.findReuseMatch(publicationsDir, sourcePath, srcInfo.Size); err != nil {
		return Decision{Action: ActionSkip, Err: err}
	} else if existing != "" {
		slog.Debug("placement: reuse existing", "path", existing)
		return Decision{
			Action:             ActionReuseExisting,
			TargetAbsolutePath: existing,
			CrossBoundaryPath:  s.Translator.Translate(existing),
		}
	}

	candidate := filepath.Join(publicationsDir, proposedFilename)
	if decision, handled := s.tryCandidate(candidate, sourcePath, ActionWriteNew); handled {
		return decision
	}

	ext := filepath.Ext(proposedFilename)
	stem := strings.TrimSuffix(proposedFilename, ext)

	scannedCandidate := filepath.Join(publicationsDir, stem+"_scanned"+ext)
	if decision, handled := s.tryCandidate(scannedCandidate, sourcePath, ActionWriteSuffixed); handled {
		return decision
	}

	for n := 2; n <= maxScannedSuffix; n++ {
		c := filepath.Join(publicationsDir, fmt.Sprintf("%s_scanned%d%s", stem, n, ext))
		if decision, handled := s.tryCandidate(c, sourcePath, ActionWriteSuffixed); handled {
			return decision
		}
	}

	return Decision{Action: ActionSkip, Err: fmt.Errorf("placement: exhausted _scanned[N] suffixes up to %d", maxScannedSuffix)}
}

// tryCandidate evaluates one candidate path: reuse if bit-identical,
// write-through if absent, or "not handled" (caller should try the next
// candidate) if occupied by different content.
func (s *Service) tryCandidate(candidate, sourcePath string, writeAction Action) (Decision, bool) {
	if _, err := os.Stat(candidate); err != nil {
		if os.IsNotExist(err) {
			d := s.writeThrough(sourcePath, candidate)
			if d.Err == nil {
				d.Action = writeAction
			}
			return d, true
		}
		return Decision{Action: ActionSkip, Err: err}, true
	}

	identical, err := fileinfo.IdenticalContent(candidate, sourcePath)
	if err != nil {
		return Decision{Action: ActionSkip, Err: err}, true
	}
	if identical {
		return Decision{
			Action:             ActionReuseExisting,
			TargetAbsolutePath: candidate,
			CrossBoundaryPath:  s.Translator.Translate(candidate),
		}, true
	}
	return Decision{}, false
}

// findReuseMatch scans publicationsDir for a file whose size matches the
// source and which is bit-identical to it, per spec.md §4.9 step 2. Returns
// "" with a nil error if no match is found.
func (s *Service) findReuseMatch(publicationsDir, sourcePath string, sourceSize int64) (string, error) {
	entries, err := os.ReadDir(publicationsDir)
	if err != nil {
		return "", fmt.Errorf("placement: scan publications dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(publicationsDir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() != sourceSize {
			continue
		}
		identical, err := fileinfo.IdenticalContent(full, sourcePath)
		if err != nil {
			slog.Warn("placement: reuse scan hash failed", "path", full, "err", err)
			continue
		}
		if identical {
			return full, nil
		}
	}
	return "", nil
}

// writeThrough copies sourcePath to candidate through the external-OS
// facility (a plain atomic copy on this process's own mount view; when the
// target filesystem refuses direct writes from outside the owning OS, the
// underlying CopyFile's temp-then-rename still goes through the same
// mount-visible path, so the "external facility" here is just the target
// directory itself — the caller is expected to have verified it is
// writable from this process). Verifies the written size and retries once
// on mismatch before giving up.
func (s *Service) writeThrough(sourcePath, candidate string) Decision {
	for attempt := 0; attempt < 2; attempt++ {
		if err := fileutils.CopyFile(candidate, sourcePath); err != nil {
			if attempt == 0 {
				slog.Warn("placement: write attempt failed, retrying", "path", candidate, "err", err)
				continue
			}
			return Decision{Action: ActionSkip, Err: fmt.Errorf("placement: write %s: %w", candidate, err)}
		}

		srcInfo, err := os.Stat(sourcePath)
		if err != nil {
			return Decision{Action: ActionSkip, Err: err}
		}
		dstInfo, err := os.Stat(candidate)
		if err != nil {
			return Decision{Action: ActionSkip, Err: err}
		}
		if srcInfo.Size() == dstInfo.Size() {
			return Decision{
				Action:             ActionWriteNew,
				TargetAbsolutePath: candidate,
				CrossBoundaryPath:  s.Translator.Translate(candidate),
			}
		}
		slog.Warn("placement: size mismatch after write, retrying", "path", candidate, "src_size", srcInfo.Size(), "dst_size", dstInfo.Size())
		os.Remove(candidate)
	}
	return Decision{Action: ActionSkip, Err: fmt.Errorf("placement: size verification failed for %s after retry", candidate)}
}
