package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nikolasavic/nfslock/internal/lock"
)

// cmdGuard acquires target, runs the given child command while holding
// it, and releases on the child's exit or on a forwarded signal.
// Grounded on the teacher's cmdGuard in cmd/lokt/main.go: same
// signal.Notify/child.Wait race, same 128+signal exit-code convention.
func cmdGuard(args []string) int {
	fs := pflag.NewFlagSet("guard", pflag.ContinueOnError)
	lf := registerLockFlags(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "usage: nfslock guard [flags] <path> -- <cmd...>")
		return ExitUsage
	}
	target := rest[0]
	cmdArgs := rest[1:]
	if cmdArgs[0] == "--" {
		cmdArgs = cmdArgs[1:]
	}
	if len(cmdArgs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: nfslock guard [flags] <path> -- <cmd...>")
		return ExitUsage
	}

	cfg, _, err := lf.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	h, err := lock.Lock(target, cfg)
	if err != nil {
		return reportAcquireError(target, err)
	}

	released := false
	release := func() {
		if !released {
			_ = h.Unlock()
			released = true
		}
	}
	defer release()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	child := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	if err := child.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to start command: %v\n", err)
		return ExitError
	}

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	select {
	case sig := <-sigCh:
		_ = child.Process.Signal(sig)
		<-done
		release()
		if s, ok := sig.(syscall.Signal); ok {
			return 128 + int(s)
		}
		return ExitError
	case <-h.Stolen():
		fmt.Fprintln(os.Stderr, "warning: lock stolen while guarded command was running")
		<-done
		return ExitStolen
	case err := <-done:
		release()
		if err == nil {
			return ExitOK
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
}
