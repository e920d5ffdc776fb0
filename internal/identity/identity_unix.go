//go:build unix

package identity

import "syscall"

// statFileID lstats path and extracts (dev, ino). Deliberately uses
// Lstat, not Stat: the lockfile path itself must never be followed through
// a symlink, matching spec.md's "symlinks are not followed on the lockfile
// path" rule. Grounded on the inode-comparison discipline in
// calvinalkan-agent-task's internal/ticket/lock.go (syscall.Stat_t.Ino
// compared after acquiring a flock, to detect delete+recreate races) —
// the same defense applies here to link(2) races instead of flock races.
func statFileID(path string) (FileID, error) {
	var st syscall.Stat_t
	if err := syscall.Lstat(path, &st); err != nil {
		return FileID{}, err
	}
	return FileID{
		Dev: uint64(st.Dev), //nolint:unconvert // width differs by GOOS/GOARCH
		Ino: uint64(st.Ino),
	}, nil
}
