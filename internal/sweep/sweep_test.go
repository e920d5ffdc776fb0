package sweep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nikolasavic/nfslock/internal/identity"
)

func TestSweepRemovesDeadPeerDebris(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x.lock")
	self := identity.Current()

	// A sibling claiming to belong to a pid that cannot possibly exist.
	deadName := identity.TempPrefix(target) + self.Host + ".999999999.1.1.1.deadbeef"
	deadPath := filepath.Join(dir, deadName)
	if err := os.WriteFile(deadPath, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res := Sweep(target, self.Host, nil)

	if _, err := os.Stat(deadPath); !os.IsNotExist(err) {
		t.Fatalf("expected dead peer's temp file removed, stat err = %v", err)
	}
	if res.Removed != 1 {
		t.Fatalf("Removed = %d, want 1", res.Removed)
	}
}

func TestSweepLeavesLiveOwnerAlone(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x.lock")
	self := identity.Current()

	name := identity.UniqueTempName(target)
	if err := os.WriteFile(name, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	Sweep(target, self.Host, nil)

	if _, err := os.Stat(name); err != nil {
		t.Fatalf("own live temp file should survive a sweep: %v", err)
	}
}

func TestSweepLeavesDifferentHostAlone(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x.lock")

	name := identity.TempPrefix(target) + "some-other-host.999999999.1.1.1.cafebabe"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	self := identity.Current()
	res := Sweep(target, self.Host, nil)

	if _, err := os.Stat(path); err != nil {
		t.Fatal("cross-host debris must never be removed")
	}
	if res.Removed != 0 {
		t.Fatalf("Removed = %d, want 0", res.Removed)
	}
}

func TestSweepNeverTouchesTheLockfileItself(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x.lock")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	self := identity.Current()
	Sweep(target, self.Host, nil)

	if _, err := os.Stat(target); err != nil {
		t.Fatal("sweep must never remove the lockfile itself")
	}
}

func TestSweepMissingDirIsQuiet(t *testing.T) {
	res := Sweep(filepath.Join(t.TempDir(), "nope", "x.lock"), "h", nil)
	if res.Removed != 0 || res.Skipped != 0 {
		t.Fatalf("expected no-op result for missing dir, got %+v", res)
	}
}
