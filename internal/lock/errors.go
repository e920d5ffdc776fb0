package lock

import "errors"

// Error kinds (spec.md §7). Each is a plain sentinel: filesystem errors
// encountered during polling are swallowed per spec.md's propagation rule
// ("only the identity check decides"), so these never wrap an *os.PathError
// from the polling phase. Where a kind does carry a wrapped cause — the
// release-only UnlockError — it is built with fmt.Errorf("%w: %v", ...) at
// the call site, following the teacher's HeldError/NotOwnerError pattern of
// a sentinel plus context, but without a detail struct since there is no
// structured payload worth exposing here.
var (
	// ErrMaxTries is returned when the outer retries budget is exhausted
	// without acquiring the lock.
	ErrMaxTries = errors.New("lock: max tries exceeded")

	// ErrTimeout is returned when the configured wall-clock deadline
	// elapses before the lock is acquired.
	ErrTimeout = errors.New("lock: timeout")

	// ErrStolen is returned when the refresher (or a later Unlock identity
	// check) discovers that the held lockfile no longer names this
	// handle's inode.
	ErrStolen = errors.New("lock: stolen")

	// ErrUnlock wraps a failed unlink of the lockfile during Unlock.
	ErrUnlock = errors.New("lock: unlock failed")

	// ErrNFS is returned when link(2)'s return value and the identity
	// check disagree consistently enough, across a full retries budget of
	// polling phases, to indicate the filesystem itself cannot be trusted
	// — spec.md §4.E's "pivotal design decision" working as intended, just
	// unable to ever reach consensus.
	ErrNFS = errors.New("lock: filesystem consistently disagrees with itself (suspected broken link(2))")

	// ErrAlreadyHeld is returned when a handle that is already in the HELD
	// state is asked to acquire again (Handle.lockInto). Lock itself always
	// starts from a fresh handle, so it never returns this. spec.md §9 leaves re-entrant lock()
	// implementation-defined; this module chooses to error rather than
	// count, since nothing in the handle's API distinguishes a genuine
	// re-entrant caller from a bug that forgot it already holds the lock.
	ErrAlreadyHeld = errors.New("lock: already held by this handle")

	// ErrNotHeld is returned by Unlock when called on a handle that never
	// reached HELD, on every such call. A handle that was held and then
	// released gets nil instead: Unlock is safe to call repeatedly (a no-op
	// after the first success).
	ErrNotHeld = errors.New("lock: handle is not held")
)
