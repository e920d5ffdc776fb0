//go:build unix

package stale

import "syscall"

// IsProcessAlive checks if a process with the given PID exists, using
// kill(pid, 0) which checks for process existence without delivering any
// signal. EPERM is treated as "alive" — it means the process exists but we
// lack permission to signal it, which is a meaningfully different answer
// than ESRCH ("does not exist").
func IsProcessAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
