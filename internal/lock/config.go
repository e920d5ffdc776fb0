// Package lock implements the NFS-safe link-and-verify acquire protocol,
// the background refresher, and the held-lock lifecycle (spec.md §4.E–G).
//
// It is the core this whole module exists to build. Its shape — a
// top-level function per operation, sentinel errors paired with a detail
// struct implementing Unwrap, options carried in an immutable struct — is
// grounded on the teacher's internal/lock package (Acquire/Release/Renew +
// HeldError/NotOwnerError), even though the acquire algorithm itself is
// completely different: the teacher uses O_CREATE|O_EXCL against a JSON
// body; this package uses link(2) validated by inode identity, because
// that is the only thing spec.md's target filesystems (NFS in particular)
// can be trusted to get right.
package lock

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/nikolasavic/nfslock/internal/audit"
)

// Infinite marks LockConfig.Retries as unbounded.
const Infinite = -1

// NoTimeout marks LockConfig.Timeout as unbounded (the default). It must be
// distinct from the zero value: spec.md §8's boundary case requires an
// explicit Timeout of exactly 0 to mean "fail immediately with
// TimeoutLockError if not already acquired during the first polling
// phase," which collapsing "unset" onto the zero value would make
// unreachable.
const NoTimeout time.Duration = -1

// LockConfig is immutable per-handle configuration (spec.md §3).
type LockConfig struct {
	// Retries bounds the outer polling+sleep loop. Infinite (the value
	// DefaultConfig sets) means never give up; 0 means one polling phase.
	Retries int

	// MinSleep, MaxSleep, SleepInc define the triangular backoff cycle.
	// MinSleep must be <= MaxSleep; SleepInc must be > 0.
	MinSleep, MaxSleep, SleepInc time.Duration

	// MaxAge, if > 0, makes a lockfile older than this stealable.
	MaxAge time.Duration

	// Suspend is how long a thief waits after unlinking a stale lockfile
	// before attempting to claim it, giving the prior owner's refresher a
	// chance to observe the loss and self-abort first.
	Suspend time.Duration

	// Refresh, if > 0, spawns a background refresher at this interval.
	Refresh time.Duration

	// Timeout bounds the entire acquire by wall clock. NoTimeout (-1, the
	// default) means unbounded; 0 means fail immediately with
	// TimeoutLockError unless the lock is won during the first polling
	// phase, per spec.md §8.
	Timeout time.Duration

	// PollRetries is the number of link-and-verify sub-attempts per outer
	// iteration (spec.md's "one retry of the outer loop"). Zero is valid
	// and means the polling phase performs no sub-attempts at all.
	PollRetries int

	// PollMaxSleep caps the random sleep between polling sub-attempts.
	PollMaxSleep time.Duration

	// DontClean suppresses process-exit cleanup registration.
	DontClean bool

	// DontSweep skips the sweeper pass at acquire time.
	DontSweep bool

	// Debug enables verbose tracing to Logger.
	Debug bool

	// Logger receives debug trace output when Debug is set. Replaces the
	// teacher's global-environment-variable debug flag (spec.md §9's
	// "Global debug flag → injected logger" redesign note) with an
	// explicit dependency; LOCKFILE_DEBUG only supplies the default at
	// construction time (see DefaultConfig).
	Logger *log.Logger

	// Audit, if non-nil, receives one event per acquire/deny/steal/sweep/
	// release/unlock-error/refresh-stolen transition (spec.md §4.H). Left
	// nil by DefaultConfig; callers that want a trail opt in explicitly.
	Audit *audit.Writer
}

func (c LockConfig) emit(e audit.Event) {
	if c.Audit == nil {
		return
	}
	c.Audit.Emit(e)
}

// DefaultConfig returns the LockConfig the CLI and library callers get
// unless they override a field: unbounded retries and timeout, a 1s..2s
// backoff in 1s steps, and 10 polling sub-attempts. A LOCKFILE_DEBUG value
// that is non-empty and not "0" or "false" turns Debug on, with a Logger
// writing to stderr.
func DefaultConfig() LockConfig {
	cfg := LockConfig{
		Retries:      Infinite,
		MinSleep:     1 * time.Second,
		MaxSleep:     2 * time.Second,
		SleepInc:     1 * time.Second,
		Suspend:      0,
		Timeout:      NoTimeout,
		PollRetries:  10,
		PollMaxSleep: 10 * time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	}
	if v := os.Getenv("LOCKFILE_DEBUG"); v != "" && v != "0" && v != "false" {
		cfg.Debug = true
		cfg.Logger = log.New(os.Stderr, "nfslock: ", log.LstdFlags)
	}
	return cfg
}

func (c LockConfig) logf(format string, args ...any) {
	if !c.Debug || c.Logger == nil {
		return
	}
	c.Logger.Printf(format, args...)
}
