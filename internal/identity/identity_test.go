package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSameFileTrue(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.Link(a, b); err != nil {
		t.Fatalf("link: %v", err)
	}

	same, err := SameFile(a, b)
	if err != nil {
		t.Fatalf("SameFile: %v", err)
	}
	if !same {
		t.Fatal("expected linked paths to report same identity")
	}
}

func TestSameFileFalse(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("x"), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}

	same, err := SameFile(a, b)
	if err != nil {
		t.Fatalf("SameFile: %v", err)
	}
	if same {
		t.Fatal("expected distinct files to report different identity")
	}
}

func TestSameFileIgnoresLinkCount(t *testing.T) {
	// Regression guard: identity must come from (dev, ino), never from
	// inspecting Nlink. A file with Nlink > 1 from unrelated hard links
	// elsewhere in the tree must still compare equal to itself.
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	extra := filepath.Join(dir, "extra")

	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.Link(a, extra); err != nil {
		t.Fatalf("link: %v", err)
	}

	same, err := SameFile(a, a)
	if err != nil {
		t.Fatalf("SameFile: %v", err)
	}
	if !same {
		t.Fatal("a file must be identical to itself regardless of nlink")
	}
}

func TestUniqueTempNameSameDir(t *testing.T) {
	target := "/var/lock/x.lock"
	got := UniqueTempName(target)
	if filepath.Dir(got) != filepath.Dir(target) {
		t.Fatalf("UniqueTempName placed temp in %q, want sibling of %q", filepath.Dir(got), target)
	}
	if !strings.HasPrefix(filepath.Base(got), "x.lock.") {
		t.Fatalf("UniqueTempName base = %q, want prefix %q", filepath.Base(got), "x.lock.")
	}
}

func TestUniqueTempNameNoCollisions(t *testing.T) {
	target := "/var/lock/x.lock"
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		n := UniqueTempName(target)
		if seen[n] {
			t.Fatalf("collision at iteration %d: %q", i, n)
		}
		seen[n] = true
	}
}

func TestTempPrefixMatchesGeneratedNames(t *testing.T) {
	target := "/var/lock/x.lock"
	prefix := TempPrefix(target)
	for i := 0; i < 20; i++ {
		n := UniqueTempName(target)
		if !strings.HasPrefix(filepath.Base(n), prefix) {
			t.Fatalf("generated name %q does not match sweeper prefix %q", n, prefix)
		}
	}
}

func TestCurrentIdentity(t *testing.T) {
	self := Current()
	if self.Host == "" {
		t.Error("Host should not be empty")
	}
	if self.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", self.PID, os.Getpid())
	}
	if self.PPID != os.Getppid() {
		t.Errorf("PPID = %d, want %d", self.PPID, os.Getppid())
	}
}
