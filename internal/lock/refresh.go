package lock

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/nikolasavic/nfslock/internal/identity"
)

// refresher implements spec.md §4.F: while a lock is held with Refresh
// configured, it periodically touches the lockfile's mtime and verifies,
// before each touch, that the path still names the inode recorded at
// acquire time. It is run as a thejerf/suture/v4.Service (see handle.go)
// rather than a bare goroutine: suture's restart-on-failure policy is
// exactly the right behavior for a transient stat/utime I/O error (retry
// with backoff), while a *confirmed* steal is modeled as a clean Serve
// return (nil) so the supervisor does not try to restart a refresher whose
// lock is simply gone.
type refresher struct {
	target   string
	want     identity.FileID
	interval time.Duration
	stolen   *atomic.Bool
	notify   chan struct{} // closed exactly once, the first time theft is detected
}

func newRefresher(target string, want identity.FileID, interval time.Duration, stolen *atomic.Bool, notify chan struct{}) *refresher {
	return &refresher{target: target, want: want, interval: interval, stolen: stolen, notify: notify}
}

// String satisfies fmt.Stringer so suture's event hook / logging can name
// this service meaningfully.
func (r *refresher) String() string {
	return "refresher(" + r.target + ")"
}

// Serve runs until ctx is cancelled (the normal unlock path), until it
// detects the lock was stolen (returns nil — done, nothing to restart),
// or until a touch/stat call fails transiently (returns the error, which
// suture will back off and retry).
func (r *refresher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stillOurs, err := r.tick()
			if err != nil {
				return err
			}
			if !stillOurs {
				r.markStolen()
				return nil
			}
		}
	}
}

// tick verifies identity and, if it still holds, touches mtime. It returns
// stillOurs == false (with a nil error) when the target is gone or now
// names a different inode — both are "stolen" from this handle's point of
// view, whether by an explicit thief or an out-of-band rm.
func (r *refresher) tick() (stillOurs bool, err error) {
	got, statErr := identity.Stat(r.target)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, statErr
	}
	if got != r.want {
		return false, nil
	}
	now := time.Now()
	if err := os.Chtimes(r.target, now, now); err != nil {
		return false, err
	}
	return true, nil
}

func (r *refresher) markStolen() {
	if r.stolen.CompareAndSwap(false, true) {
		close(r.notify)
	}
}
