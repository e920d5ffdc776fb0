//go:build windows

package identity

import (
	"os"
	"syscall"
)

// statFileID uses the Win32 file index (volume serial + file index) as the
// closest analogue to (device, inode). Hard links and NFS semantics are not
// native to Windows; this exists so the package builds there, not because
// the spec's NFS scenarios apply.
func statFileID(path string) (FileID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileID{}, err
	}
	defer f.Close()

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(syscall.Handle(f.Fd()), &info); err != nil {
		return FileID{}, err
	}
	return FileID{
		Dev: uint64(info.VolumeSerialNumber),
		Ino: uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
	}, nil
}
