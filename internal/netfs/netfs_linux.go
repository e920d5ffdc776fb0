//go:build linux

// Package netfs identifies the filesystem type under a path via statfs(2),
// so the doctor command can report whether a target sits on one of the
// network filesystems this module exists for.
package netfs

import "syscall"

// Filesystem magic numbers from statfs(2)/<linux/magic.h>.
const (
	nfsMagic   = 0x6969     // NFS_SUPER_MAGIC (also NFSv4)
	cifsMagic  = 0xff534d42 // CIFS_MAGIC_NUMBER
	smbfsMagic = 0x517B     // SMB_SUPER_MAGIC
	ncpfsMagic = 0x564c     // NCP_SUPER_MAGIC
	afsMagic   = 0x5346414F // AFS_SUPER_MAGIC
	fuseMagic  = 0x65735546 // FUSE_SUPER_MAGIC (SSHFS, GlusterFS, etc.)
)

// Check reports whether path resides on a network filesystem and, if so,
// names it. It returns false, "" on local filesystems or if the path
// cannot be statfs'd at all (the caller's own stat/link calls will surface
// that failure with better context).
func Check(path string) (network bool, fsName string) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return false, ""
	}

	switch stat.Type {
	case nfsMagic:
		return true, "NFS"
	case cifsMagic, smbfsMagic:
		return true, "CIFS/SMB"
	case ncpfsMagic:
		return true, "NCP"
	case afsMagic:
		return true, "AFS"
	case fuseMagic:
		return true, "FUSE"
	default:
		return false, ""
	}
}

// TypeName returns a human-readable filesystem type name, best-effort,
// for doctor's verbose output.
func TypeName(path string) string {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return "unknown"
	}
	switch stat.Type {
	case nfsMagic:
		return "nfs"
	case cifsMagic, smbfsMagic:
		return "cifs"
	case ncpfsMagic:
		return "ncp"
	case afsMagic:
		return "afs"
	case fuseMagic:
		return "fuse"
	case 0x9123683E:
		return "btrfs"
	case 0xEF53:
		return "ext4"
	case 0x01021994:
		return "tmpfs"
	default:
		return "local"
	}
}
