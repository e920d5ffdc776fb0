package lock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterCleanupDeregisterRemovesFromRegistry(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deregister := registerCleanup(target)

	cleanupRegistry.mu.Lock()
	_, present := cleanupRegistry.paths[target]
	cleanupRegistry.mu.Unlock()
	if !present {
		t.Fatal("target was not registered")
	}

	deregister()

	cleanupRegistry.mu.Lock()
	_, present = cleanupRegistry.paths[target]
	cleanupRegistry.mu.Unlock()
	if present {
		t.Fatal("target still registered after deregister")
	}
}

func TestNormalUnlockDeregistersCleanup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lck")
	cfg := testConfig()
	cfg.DontClean = false

	h, err := Lock(target, cfg)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := h.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	cleanupRegistry.mu.Lock()
	_, present := cleanupRegistry.paths[target]
	cleanupRegistry.mu.Unlock()
	if present {
		t.Fatal("cleanup entry leaked past a normal Unlock")
	}
}
