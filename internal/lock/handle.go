package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikolasavic/nfslock/internal/audit"
	"github.com/nikolasavic/nfslock/internal/identity"
	suture "github.com/thejerf/suture/v4"
)

type state int

const (
	stateUnheld state = iota
	stateHeld
	stateReleased
)

// Handle is the public lifecycle object returned by Lock (spec.md §4.G):
// UNHELD -> HELD -> RELEASED, with Unlock idempotent past the first call,
// Thief reporting whether the current hold was won by stealing, and
// WasStolen reporting whether it was later taken out from under the
// holder rather than released normally. Grounded on the teacher's
// LockHandle (internal/lock/handle.go), generalized to carry the
// suture-supervised refresher this protocol's theft detection needs that
// the teacher's TTL-only design did not.
type Handle struct {
	target string
	cfg    LockConfig

	mu sync.Mutex
	st state
	id identity.FileID

	thief  bool        // this hold was won by stealing a stale lockfile (spec.md §4.G)
	stolen atomic.Bool // this hold was, in turn, taken out from under us

	notify  chan struct{}
	cancel  context.CancelFunc
	supDone <-chan error
	cleanup func()
}

// Lock acquires target per cfg, spawning a refresher if cfg.Refresh > 0
// and registering process-exit cleanup unless cfg.DontClean. Every call
// builds a fresh handle; re-acquiring a handle still in the HELD state
// (lockInto) returns ErrAlreadyHeld.
func Lock(target string, cfg LockConfig) (*Handle, error) {
	h := &Handle{target: target, cfg: cfg}
	return h, h.lockInto(target, cfg)
}

func (h *Handle) lockInto(target string, cfg LockConfig) error {
	h.mu.Lock()
	if h.st == stateHeld {
		h.mu.Unlock()
		return ErrAlreadyHeld
	}
	h.mu.Unlock()

	res, err := acquire(target, cfg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.target = res.target
	h.id = res.id
	h.thief = res.thief
	h.st = stateHeld
	h.stolen.Store(false)
	h.notify = make(chan struct{})
	h.mu.Unlock()

	if !cfg.DontClean {
		h.cleanup = registerCleanup(res.target)
	}

	if cfg.Refresh > 0 {
		h.startRefresher(cfg.Refresh)
	}

	return nil
}

// startRefresher spawns a thejerf/suture/v4 supervisor hosting exactly one
// refresher service. suture owns restart-with-backoff for transient
// touch/stat failures; a confirmed steal makes the service return nil,
// which suture treats as "done", not "crashed" — so nothing restarts it.
func (h *Handle) startRefresher(interval time.Duration) {
	sup := suture.NewSimple("nfslock-refresher")
	r := newRefresher(h.target, h.id, interval, &h.stolen, h.notify)
	sup.Add(r)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	done := make(chan error, 1)
	h.supDone = done
	go func() {
		done <- sup.Serve(ctx)
	}()

	go func() {
		select {
		case <-h.notify:
			h.cfg.emit(audit.Event{Event: audit.EventRefreshStolen, Target: h.target, Host: identity.Current().Host, PID: identity.Current().PID})
		case <-ctx.Done():
		}
	}()
}

// Work runs fn while the lock is held and always releases afterward,
// mirroring the teacher's Lock(func() error) convenience form. The lock is
// released even if fn panics.
//
// A release error is suppressed (but logged) when fn already succeeded —
// the caller's work is done, and a bare unlock failure shouldn't mask that.
// If fn also failed, the release error is joined onto fn's so neither is
// lost.
func (h *Handle) Work(fn func() error) (err error) {
	defer func() {
		uerr := h.Unlock()
		if uerr == nil {
			return
		}
		if err == nil {
			h.cfg.logf("work: unlock failed after successful work: %v", uerr)
			return
		}
		err = errors.Join(err, uerr)
	}()
	return fn()
}

// Unlock releases the lock. It is safe to call repeatedly: once the first
// call has released it, every later call is a no-op returning nil. Only a
// handle that never reached HELD returns ErrNotHeld. Unlock refuses to
// remove the lockfile if the handle was stolen out from under it (spec.md
// §4.G) — removing it would delete whoever stole it, not clean up after
// ourselves.
func (h *Handle) Unlock() error {
	h.mu.Lock()
	switch h.st {
	case stateUnheld:
		h.mu.Unlock()
		return ErrNotHeld
	case stateReleased:
		h.mu.Unlock()
		return nil
	}
	h.st = stateReleased
	target, id := h.target, h.id
	cancel := h.cancel
	supDone := h.supDone
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		if supDone != nil {
			<-supDone
		}
	}

	if h.cleanup != nil {
		h.cleanup()
	}

	if h.stolen.Load() {
		return ErrStolen
	}

	got, statErr := identity.Stat(target)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			h.cfg.emit(audit.Event{Event: audit.EventRelease, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
			return nil
		}
		h.cfg.emit(audit.Event{Event: audit.EventUnlockError, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
		return fmt.Errorf("%w: %v", ErrUnlock, statErr)
	}
	if got != id {
		// Someone else's lockfile now occupies this path; never unlink it.
		if h.stolen.CompareAndSwap(false, true) && h.notify != nil {
			close(h.notify)
		}
		return ErrStolen
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		h.cfg.emit(audit.Event{Event: audit.EventUnlockError, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
		return fmt.Errorf("%w: %v", ErrUnlock, err)
	}
	h.cfg.emit(audit.Event{Event: audit.EventRelease, Target: target, Host: identity.Current().Host, PID: identity.Current().PID})
	return nil
}

// Thief reports whether the current hold was won by stealing a stale
// lockfile (spec.md §4.G), as opposed to an uncontended or polling-phase
// acquisition. It reflects how this hold was *won*, not what has happened
// to it since; use WasStolen or Stolen to learn whether this hold was in
// turn taken out from under the caller.
func (h *Handle) Thief() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.thief
}

// WasStolen reports whether this handle's current (or most recently held)
// lock was discovered taken out from under it, either by the background
// refresher or by a later Unlock identity check. This is the polled-flag
// delivery mechanism spec.md §4.F's design notes call out as the
// cross-language-safe alternative to injecting StolenLockError at an
// arbitrary suspension point.
func (h *Handle) WasStolen() bool {
	return h.stolen.Load()
}

// Stolen returns a channel that is closed the moment theft is detected.
// Callers that want to react immediately (rather than polling WasStolen)
// should select on it.
func (h *Handle) Stolen() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notify
}
