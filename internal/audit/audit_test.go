package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLines(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad json line: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func TestEmitAppendsJSONLine(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	w.Emit(Event{Event: EventAcquire, Target: "/tmp/lck", Host: "h", PID: 1})
	w.Emit(Event{Event: EventRelease, Target: "/tmp/lck", Host: "h", PID: 1})

	events := readLines(t, filepath.Join(dir, logFileName))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != EventAcquire || events[1].Event != EventRelease {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("timestamp was never filled in")
	}
}

func TestEmitCreatesDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	w := NewWriter(dir)
	w.Emit(Event{Event: EventSweep})

	if _, err := os.Stat(filepath.Join(dir, logFileName)); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestEmitNeverPanicsOnOpenFailure(t *testing.T) {
	orig := openFileFn
	defer func() { openFileFn = orig }()
	openFileFn = func(name string, flag int, perm os.FileMode) (*os.File, error) {
		return nil, os.ErrPermission
	}

	w := NewWriter(t.TempDir())
	w.Emit(Event{Event: EventDeny}) // must not panic or return an error
}
