package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// seq is a per-process monotonic counter, added to the unique temp name so
// that two calls from the same thread in the same nanosecond still differ.
var seq atomic.Uint64

// UniqueTempName builds the sibling path used to stage an acquire attempt
// against target, per spec.md §3:
//
//	<lockfile_basename>.<hostname>.<pid>.<thread_id>.<monotonic_seq>.<time_ns>.<random>
//
// It must live in the same directory as target — link(2) across filesystems
// fails, and NFS exports are frequently mounted such that dir(target) is the
// only filesystem boundary that matters.
func UniqueTempName(target string) string {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	self := Current()

	var randBuf [6]byte
	_, _ = rand.Read(randBuf[:]) // crypto/rand never errors on this platform class

	name := fmt.Sprintf("%s.%s.%d.%d.%d.%d.%s",
		base,
		self.Host,
		self.PID,
		threadID(),
		seq.Add(1),
		time.Now().UnixNano(),
		hex.EncodeToString(randBuf[:]),
	)
	return filepath.Join(dir, name)
}

// tempPrefix is the prefix the sweeper matches siblings of target against:
// everything up to but not including the hostname segment is shared by
// every acquirer of this lockfile, while the hostname segment lets the
// sweeper additionally filter to same-host candidates without a second
// stat call.
func tempPrefix(target string) string {
	return filepath.Base(target) + "."
}

// TempPrefix exports tempPrefix for the sweeper package.
func TempPrefix(target string) string {
	return tempPrefix(target)
}

// ParseTempName extracts the hostname and pid embedded in a sibling name
// previously produced by UniqueTempName for target. ok is false if name
// does not match the expected shape (e.g. some unrelated file that happens
// to share target's basename as a prefix).
//
// The hostname segment may itself contain dots (FQDNs do); the five
// trailing segments (pid, thread id, seq, time_ns, random) never do, so
// they are peeled off the right and whatever dot-separated text remains
// between the basename prefix and those five fields is taken as the host,
// rejoined on ".". This is why spec.md's Open Question about short vs FQDN
// hostnames matters here: two peers that disagree about their own
// hostname format will simply never match each other's prefix.
func ParseTempName(target, name string) (host string, pid int, ok bool) {
	prefix := tempPrefix(target)
	if !strings.HasPrefix(name, prefix) {
		return "", 0, false
	}
	rest := name[len(prefix):]
	parts := strings.Split(rest, ".")
	if len(parts) < 6 {
		return "", 0, false
	}
	// Last 5 parts are pid, tid, seq, time_ns, random; everything before
	// that is the (possibly dotted) hostname.
	tail := parts[len(parts)-5:]
	hostParts := parts[:len(parts)-5]

	pidVal, err := strconv.Atoi(tail[0])
	if err != nil {
		return "", 0, false
	}
	return strings.Join(hostParts, "."), pidVal, true
}
