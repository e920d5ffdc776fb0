//go:build darwin

package stale

import (
	"encoding/binary"
	"errors"
	"syscall"
	"unsafe"
)

// ErrStartTimeNotSupported is returned on platforms where process start
// time cannot be retrieved.
var ErrStartTimeNotSupported = errors.New("process start time not supported")

// GetProcessStartTime returns the process start time as nanoseconds since
// the Unix epoch, read via sysctl KERN_PROC / KERN_PROC_PID into kinfo_proc
// and extracting p_starttime. Avoids a cgo dependency for one struct field.
func GetProcessStartTime(pid int) (int64, error) {
	mib := [4]int32{
		1,  // CTL_KERN
		14, // KERN_PROC
		1,  // KERN_PROC_PID
		int32(pid),
	}

	n := uintptr(0)
	_, _, errno := syscall.Syscall6(
		syscall.SYS___SYSCTL,
		uintptr(unsafe.Pointer(&mib[0])),
		4,
		0,
		uintptr(unsafe.Pointer(&n)),
		0,
		0,
	)
	if errno != 0 {
		return 0, errno
	}
	if n == 0 {
		return 0, errors.New("process not found")
	}

	buf := make([]byte, n)
	_, _, errno = syscall.Syscall6(
		syscall.SYS___SYSCTL,
		uintptr(unsafe.Pointer(&mib[0])),
		4,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&n)),
		0,
		0,
	)
	if errno != 0 {
		return 0, errno
	}

	// kinfo_proc begins with extern_proc, whose first field is
	// p_starttime: a struct timeval { int64 tv_sec; int64 tv_usec }.
	const pStarttimeOffset = 0
	if int(n) < pStarttimeOffset+16 {
		return 0, errors.New("kinfo_proc too small")
	}

	tvSec := int64(binary.LittleEndian.Uint64(buf[pStarttimeOffset:]))
	tvUsec := int64(binary.LittleEndian.Uint64(buf[pStarttimeOffset+8:]))

	return tvSec*1e9 + tvUsec*1e3, nil
}
