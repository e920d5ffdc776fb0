//go:build windows

package netfs

// Check reports whether path resides on a network filesystem. Detecting
// this on Windows requires GetVolumeInformation/GetDriveType plumbing this
// module doesn't carry yet; always reports unknown rather than guessing.
func Check(_ string) (network bool, fsName string) {
	return false, ""
}

// TypeName always reports "unknown" on this platform.
func TypeName(_ string) string {
	return "unknown"
}
