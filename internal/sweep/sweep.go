// Package sweep reclaims UniqueTempName debris left behind by same-host
// peers that crashed between staging a temp file and linking it (or
// unlinking it) — spec.md §4.C.
//
// Grounded on the teacher's internal/lock/sweep.go: same "list the
// directory, filter by name, probe liveness, unlink on demonstrable death,
// otherwise leave it alone" shape, retargeted from JSON lock bodies with a
// TTL to bare UniqueTempName siblings with no TTL of their own — only pid
// liveness decides here, because a crashed peer's temp file has no
// independent notion of staleness besides "whoever made it is gone".
package sweep

import (
	"os"
	"path/filepath"

	"github.com/nikolasavic/nfslock/internal/identity"
	"github.com/nikolasavic/nfslock/internal/stale"
)

// Logger is the minimal interface the sweeper needs for optional debug
// tracing; *log.Logger satisfies it. A nil Logger disables tracing.
type Logger interface {
	Printf(format string, args ...any)
}

// Result reports what a sweep pass did.
type Result struct {
	Removed int
	Skipped int
}

// Sweep scans dir(target) for UniqueTempName siblings of target, and
// unlinks any whose embedded hostname matches hostname and whose embedded
// pid is demonstrably dead. It never touches target itself. Any ambiguity
// — a different host, an unparseable name, a permission error — leaves the
// candidate alone; the sweeper is advisory and its failures are never
// fatal to the caller's acquire attempt.
func Sweep(target, hostname string, logger Logger) Result {
	dir := filepath.Dir(target)
	entries, err := os.ReadDir(dir)
	if err != nil {
		logf(logger, "sweep: read dir %s: %v", dir, err)
		return Result{}
	}

	var res Result
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == filepath.Base(target) {
			continue // never touch the lockfile itself
		}

		host, pid, ok := identity.ParseTempName(target, name)
		if !ok {
			continue // not one of ours
		}
		if host != hostname {
			res.Skipped++
			continue // cannot prove liveness cross-host
		}
		if !stale.Dead(pid, 0) {
			res.Skipped++
			continue // owner still alive (or platform can't tell — conservative)
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				logf(logger, "sweep: remove %s: %v", path, err)
			}
			res.Skipped++
			continue
		}
		logf(logger, "sweep: removed stale temp %s (dead pid %d)", name, pid)
		res.Removed++
	}
	return res
}

func logf(logger Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}
