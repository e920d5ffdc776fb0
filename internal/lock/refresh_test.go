package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nikolasavic/nfslock/internal/identity"
)

func TestRefresherTouchesMtime(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	if err := os.WriteFile(target, []byte("host=me\npid=1\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(target, old, old); err != nil {
		t.Fatal(err)
	}

	id, err := identity.Stat(target)
	if err != nil {
		t.Fatal(err)
	}

	var stolen atomic.Bool
	notify := make(chan struct{})
	r := newRefresher(target, id, 5*time.Millisecond, &stolen, notify)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}

	fi, err := os.Lstat(target)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().After(old.Add(time.Minute)) {
		t.Fatalf("mtime was never refreshed: %v", fi.ModTime())
	}
	if stolen.Load() {
		t.Fatal("should not have detected a steal")
	}
}

func TestRefresherReturnsNilOnDetectedTheftNotError(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	if err := os.WriteFile(target, []byte("host=me\npid=1\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	id, err := identity.Stat(target)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("host=thief\npid=2\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stolen atomic.Bool
	notify := make(chan struct{})
	r := newRefresher(target, id, 5*time.Millisecond, &stolen, notify)

	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- r.Serve(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil on a detected steal", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve never returned")
	}
	if !stolen.Load() {
		t.Fatal("stolen flag was never set")
	}
	select {
	case <-notify:
	default:
		t.Fatal("notify channel was never closed")
	}
}

func TestRefresherTreatsRemovalAsTheft(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	if err := os.WriteFile(target, []byte("host=me\npid=1\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	id, err := identity.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	var stolen atomic.Bool
	notify := make(chan struct{})
	r := newRefresher(target, id, 5*time.Millisecond, &stolen, notify)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve never returned after lockfile was removed out from under it")
	}
}
