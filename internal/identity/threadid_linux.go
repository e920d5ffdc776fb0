//go:build linux

package identity

import "syscall"

// threadID returns the OS thread id of the calling goroutine's current
// carrier thread. Go's M:N scheduler means this is not stable across
// goroutine suspension points, but that is fine here: it is one more
// collision-avoidance input for UniqueTempName, not an identity the
// protocol depends on staying fixed. Grounded on the per-GOOS split used
// throughout the teacher's internal/stale package (starttime_linux.go,
// starttime_darwin.go) for the same "no portable syscall" reason.
func threadID() int {
	return syscall.Gettid()
}
