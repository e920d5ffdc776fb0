package doctor

import (
	"path/filepath"
	"testing"
)

func TestCheckWritableOK(t *testing.T) {
	dir := t.TempDir()
	r := CheckWritable(dir)
	if r.Status != StatusOK {
		t.Fatalf("got %v: %s", r.Status, r.Message)
	}
}

func TestCheckWritableFailsOnUnwritableParent(t *testing.T) {
	r := CheckWritable("/proc/nfslock-doctor-should-not-exist/nested")
	if r.Status == StatusOK {
		t.Fatal("expected failure against an unwritable path")
	}
}

func TestCheckLinkCapabilityOnTmpfs(t *testing.T) {
	dir := t.TempDir()
	r := CheckLinkCapability(dir)
	if r.Status != StatusOK {
		t.Fatalf("got %v: %s", r.Status, r.Message)
	}
}

func TestCheckClockSaneToday(t *testing.T) {
	r := CheckClock()
	if r.Status != StatusOK {
		t.Fatalf("got %v: %s", r.Status, r.Message)
	}
}

func TestOverallPicksWorst(t *testing.T) {
	results := []CheckResult{
		{Name: "a", Status: StatusOK},
		{Name: "b", Status: StatusWarn},
		{Name: "c", Status: StatusOK},
	}
	if got := Overall(results); got != StatusWarn {
		t.Fatalf("got %v, want warn", got)
	}
	results = append(results, CheckResult{Name: "d", Status: StatusFail})
	if got := Overall(results); got != StatusFail {
		t.Fatalf("got %v, want fail", got)
	}
}

func TestRunProducesAllChecks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	results := Run(target)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
}
