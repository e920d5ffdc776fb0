// Package doctor runs the diagnostic checks spec.md §4.I calls for: is the
// target directory writable, does the filesystem actually support link(2)
// identity semantics, is it a known network filesystem, and is the local
// clock sane enough for mtime-based staleness to mean anything. Grounded
// on the teacher's internal/doctor (Status/CheckResult/Overall and the
// individual Check* functions), generalized from lokt's fixed .lokt/locks
// layout to an arbitrary caller-supplied target path.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikolasavic/nfslock/internal/identity"
	"github.com/nikolasavic/nfslock/internal/netfs"
)

// Status is the severity of a single check's outcome.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckResult is one diagnostic's outcome.
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Overall reduces a set of results to the worst status present: fail beats
// warn beats ok.
func Overall(results []CheckResult) Status {
	for _, r := range results {
		if r.Status == StatusFail {
			return StatusFail
		}
	}
	for _, r := range results {
		if r.Status == StatusWarn {
			return StatusWarn
		}
	}
	return StatusOK
}

// Run executes every check against target's directory and returns their
// results in a stable order.
func Run(target string) []CheckResult {
	dir := filepath.Dir(target)
	return []CheckResult{
		CheckWritable(dir),
		CheckLinkCapability(dir),
		CheckNetworkFS(dir),
		CheckClock(),
	}
}

// CheckWritable verifies the directory is writable by creating and
// removing a probe file in it.
func CheckWritable(dir string) CheckResult {
	result := CheckResult{Name: "writable"}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create directory: %v", err)
		return result
	}

	probe := filepath.Join(dir, ".nfslock-doctor-probe")
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create probe file: %v", err)
		return result
	}
	_ = f.Close()
	if err := os.Remove(probe); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot remove probe file: %v", err)
		return result
	}

	result.Status = StatusOK
	return result
}

// CheckLinkCapability verifies that link(2) on this filesystem actually
// produces two directory entries sharing one inode — the one property the
// entire acquire protocol depends on. A handful of overlay/FUSE
// filesystems accept link(2) without error yet silently copy instead of
// linking; this check exists to catch exactly that.
func CheckLinkCapability(dir string) CheckResult {
	result := CheckResult{Name: "link_capability"}

	a := filepath.Join(dir, ".nfslock-doctor-link-a")
	b := filepath.Join(dir, ".nfslock-doctor-link-b")
	defer os.Remove(a)
	defer os.Remove(b)

	f, err := os.OpenFile(a, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create probe file: %v", err)
		return result
	}
	_ = f.Close()

	if err := os.Link(a, b); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("link(2) not supported here: %v", err)
		return result
	}

	same, err := identity.SameFile(a, b)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot verify link identity: %v", err)
		return result
	}
	if !same {
		result.Status = StatusFail
		result.Message = "link(2) succeeded but the two paths do not share an inode; this filesystem cannot be trusted for locking"
		return result
	}

	result.Status = StatusOK
	return result
}

// CheckNetworkFS reports, as an advisory, whether dir is on a recognized
// network filesystem. Unlike the teacher's version (where this was a
// warning, since lokt's protocol depends on local O_EXCL atomicity) this
// is informational here: spec.md's whole design exists to work correctly
// on exactly these filesystems.
func CheckNetworkFS(dir string) CheckResult {
	result := CheckResult{Name: "network_fs"}
	if network, name := netfs.Check(dir); network {
		result.Status = StatusOK
		result.Message = fmt.Sprintf("%s filesystem detected", name)
		return result
	}
	result.Status = StatusOK
	result.Message = fmt.Sprintf("local filesystem (%s)", netfs.TypeName(dir))
	return result
}

// CheckClock warns if the system clock looks implausible, since max_age
// and the refresher's mtime touches are only meaningful relative to a
// sane wall clock.
func CheckClock() CheckResult {
	result := CheckResult{Name: "clock"}
	year := time.Now().Year()

	if year < 2024 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("system clock appears to be in the past (year %d)", year)
		return result
	}
	if year > 2100 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("system clock appears to be far in the future (year %d)", year)
		return result
	}

	result.Status = StatusOK
	return result
}
