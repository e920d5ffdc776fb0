package lock

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"

	"github.com/nikolasavic/nfslock/internal/audit"
	"github.com/nikolasavic/nfslock/internal/identity"
	"github.com/nikolasavic/nfslock/internal/lockfile"
	"github.com/nikolasavic/nfslock/internal/schedule"
	"github.com/nikolasavic/nfslock/internal/sweep"
)

// acquireResult carries everything Handle needs to start a refresher and
// later release cleanly, without re-deriving it from disk.
type acquireResult struct {
	target string
	id     identity.FileID
	thief  bool // true if this acquisition was won by stealing a stale lockfile
}

// acquire runs spec.md §4.E's link-and-verify protocol: it creates a
// unique regular file U, hard-links it to target as T, and trusts only a
// subsequent stat-identity comparison — never link(2)'s own return value —
// to decide whether this call won the lock. This is the load-bearing
// decision of the whole module: NFS servers are known to apply a link
// remotely and then report EEXIST (or any other error) to the client that
// actually won, and conversely to report success to a client that lost a
// race against a concurrent rename. Only "does target now point at the
// same (dev, ino) as U" is trustworthy.
func acquire(target string, cfg LockConfig) (acquireResult, error) {
	var deadline time.Time
	hasDeadline := cfg.Timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(cfg.Timeout)
	}

	if !cfg.DontSweep {
		res := sweep.Sweep(target, identity.Current().Host, sweepLogAdapter{cfg})
		cfg.logf("sweep: removed=%d skipped=%d", res.Removed, res.Skipped)
		if res.Removed > 0 {
			cfg.emit(audit.Event{
				Event:  audit.EventSweep,
				Target: target,
				Host:   identity.Current().Host,
				PID:    identity.Current().PID,
				Extra:  map[string]any{"removed": res.Removed, "skipped": res.Skipped},
			})
		}
	}

	sched := schedule.New(cfg.MinSleep, cfg.MaxSleep, cfg.SleepInc)
	sched.Reset()

	var totalSubAttempts, totalLinkNilNoMatch int
	var stoleAny bool

	for attempt := 0; cfg.Retries < 0 || attempt <= cfg.Retries; attempt++ {
		res, err := tryOnce(target, cfg)
		totalSubAttempts += res.subAttempts
		totalLinkNilNoMatch += res.linkNilNoMatch
		stoleAny = stoleAny || res.stole
		if err != nil {
			return acquireResult{}, err
		}
		if res.won {
			cfg.logf("acquire: won after %d outer attempt(s)", attempt+1)
			cfg.emit(audit.Event{Event: audit.EventAcquire, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
			return acquireResult{target: target, id: res.id, thief: stoleAny}, nil
		}

		cfg.logf("acquire: attempt %d lost (linkErr=%v)", attempt+1, res.linkErr)
		cfg.emit(audit.Event{Event: audit.EventDeny, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})

		// spec.md §4.E step 3c: the deadline is checked before the retries
		// budget, so an expired deadline always reports Timeout even when
		// retries happen to be exhausted at the same moment. Checking it
		// here, after the polling phase that just ran unconditionally,
		// lets timeout=0 still get one full polling phase (spec.md §8)
		// instead of failing before ever attempting the lock.
		if hasDeadline && time.Now().After(deadline) {
			return acquireResult{}, classifyExhaustion(ErrTimeout, totalSubAttempts, totalLinkNilNoMatch)
		}
		if cfg.Retries >= 0 && attempt == cfg.Retries {
			return acquireResult{}, classifyExhaustion(ErrMaxTries, totalSubAttempts, totalLinkNilNoMatch)
		}

		sleepFor := sched.Next()
		if hasDeadline {
			if remaining := time.Until(deadline); remaining < sleepFor {
				sleepFor = remaining
			}
		}
		if sleepFor > 0 {
			time.Sleep(sleepFor)
		}
	}

	// Unreachable: the loop only exits via one of the two returns above,
	// since cfg.Retries < 0 keeps it going forever otherwise.
	return acquireResult{}, classifyExhaustion(ErrMaxTries, totalSubAttempts, totalLinkNilNoMatch)
}

// classifyExhaustion implements spec.md §9's escape hatch: if, across the
// entire acquire call, every single polling sub-attempt saw link(2) report
// success while the identity check still disagreed, the filesystem itself
// is the suspect, not contention — substitute ErrNFS for whichever
// exhaustion error would otherwise apply. The condition is bounded by
// construction to at most poll_retries × (retries+1) sub-attempts, since
// Retries == 0 still runs one polling phase.
func classifyExhaustion(base error, totalSubAttempts, totalLinkNilNoMatch int) error {
	if totalSubAttempts > 0 && totalLinkNilNoMatch == totalSubAttempts {
		return ErrNFS
	}
	return base
}

// tryOnceResult carries everything one outer-loop iteration learned, for
// acquire to fold into its running totals and eventual acquireResult.
type tryOnceResult struct {
	won            bool
	id             identity.FileID
	linkErr        error
	subAttempts    int
	linkNilNoMatch int
	stole          bool // at least one sub-attempt stole a stale target
}

// tryOnce performs one outer-loop iteration: create U, then run the
// polling phase of up to cfg.PollRetries sub-attempts (spec.md §4.E step
// 3b). Each sub-attempt attempts link(U, target) — errors ignored — and
// compares identity(U) to identity(target); if they still disagree, it
// considers stealing a stale target before the next sub-attempt. Staleness
// is a property of the polling phase, not the outer retry loop: stealing
// and re-linking both happen inside this bounded loop, so a stale lock is
// reclaimable even with cfg.Retries == 0 (spec.md §8's regression to guard
// against — an outer-loop-only steal check would unlink a stale target on
// the one and only outer iteration Retries=0 allows, then have nowhere
// left to retry the link into the now-empty path).
func tryOnce(target string, cfg LockConfig) (tryOnceResult, error) {
	var res tryOnceResult

	u, uerr := createUnique(target)
	if uerr != nil {
		return tryOnceResult{}, uerr
	}

	// spec.md §5: if this process is killed while U exists but before it is
	// linked and this iteration returns, U must still be reclaimed. Ordinary
	// defers do not run across a signal-killed process, so U rides the same
	// explicit cleanup registry T does once held — registered for exactly
	// the window it exists, deregistered the instant this function is done
	// with it.
	var deregister func()
	if !cfg.DontClean {
		deregister = registerCleanup(u)
	}
	defer func() {
		if deregister != nil {
			deregister()
		}
		os.Remove(u)
	}()

	uID, serr := identity.Stat(u)
	if serr != nil {
		return tryOnceResult{}, serr
	}

	for i := 0; i < cfg.PollRetries; i++ {
		res.subAttempts++
		linkErr := os.Link(u, target)
		res.linkErr = linkErr

		tID, terr := identity.Stat(target)
		if terr == nil && tID == uID {
			res.won = true
			res.id = tID
			return res, nil
		}
		if linkErr == nil {
			res.linkNilNoMatch++
		}

		stole, stealErr := maybeSteal(target, cfg)
		if stealErr != nil {
			// Polling-phase filesystem errors are race noise: log and keep polling.
			cfg.logf("acquire: steal check: %v", stealErr)
		}
		if stole {
			res.stole = true
			cfg.emit(audit.Event{Event: audit.EventSteal, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
			continue // re-attempt link on the very next sub-attempt, still within this polling phase
		}

		if i < cfg.PollRetries-1 {
			time.Sleep(randPollSleep(cfg.PollMaxSleep))
		}
	}

	return res, nil
}

// maybeSteal implements spec.md §4.D's theft policy: a lockfile older than
// MaxAge (by mtime, never by a trusted link count) is fair game. Stealing
// unlinks it and suspends before the caller retries, giving the prior
// owner's refresher — if it is still alive — a chance to notice the loss
// on its own.
func maybeSteal(target string, cfg LockConfig) (stole bool, err error) {
	if cfg.MaxAge <= 0 {
		return false, nil
	}
	fi, statErr := os.Lstat(target)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, statErr
	}
	if time.Since(fi.ModTime()) <= cfg.MaxAge {
		return false, nil
	}
	if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
		return false, rmErr
	}
	cfg.logf("acquire: stole lock older than %v", cfg.MaxAge)
	if cfg.Suspend > 0 {
		time.Sleep(cfg.Suspend)
	}
	return true, nil
}

// createUnique writes a fresh Contents body to a brand-new unique path in
// target's directory and returns that path. It never uses an atomic
// temp-then-rename writer: U's own stable path and inode are what the
// subsequent link-and-verify step depends on, and a rename would swap the
// inode out from under it.
func createUnique(target string) (path string, err error) {
	path = identity.UniqueTempName(target)
	self := identity.Current()
	contents := lockfile.Contents{
		Host:    self.Host,
		PID:     self.PID,
		PPID:    self.PPID,
		Created: time.Now(),
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(lockfile.Encode(contents)); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := f.Sync(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func randPollSleep(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return max / 2
	}
	n := binary.LittleEndian.Uint64(b[:])
	return time.Duration(n % uint64(max))
}

type sweepLogAdapter struct{ cfg LockConfig }

func (a sweepLogAdapter) Printf(format string, args ...any) {
	if a.cfg.Debug {
		a.cfg.logf(format, args...)
	}
}
