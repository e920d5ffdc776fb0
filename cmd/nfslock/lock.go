package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/nikolasavic/nfslock/internal/audit"
	cfgfile "github.com/nikolasavic/nfslock/internal/config"
	"github.com/nikolasavic/nfslock/internal/lock"
	"github.com/nikolasavic/nfslock/internal/root"
)

type lockFlags struct {
	retries     int
	timeout     int64 // milliseconds; pflag has no native int64-as-duration-string helper we trust here
	minSleep    int64
	maxSleep    int64
	sleepInc    int64
	maxAge      int64
	suspend     int64
	refresh     int64
	pollRetries int
	pollMax     int64
	configPath  string
	debug       tristate
	dontClean   tristate
	dontSweep   tristate
}

func registerLockFlags(fs *pflag.FlagSet) *lockFlags {
	f := &lockFlags{}
	fs.IntVar(&f.retries, "retries", lock.Infinite, "outer-loop attempts, -1 for unbounded")
	fs.Int64Var(&f.timeout, "timeout-ms", -1, "give up after this many milliseconds (0: fail immediately unless won during the first polling phase)")
	fs.Int64Var(&f.minSleep, "min-sleep-ms", 0, "backoff floor in milliseconds (0: use default)")
	fs.Int64Var(&f.maxSleep, "max-sleep-ms", 0, "backoff ceiling in milliseconds (0: use default)")
	fs.Int64Var(&f.sleepInc, "sleep-inc-ms", 0, "backoff step in milliseconds (0: use default)")
	fs.Int64Var(&f.maxAge, "max-age-ms", 0, "steal a lockfile older than this many milliseconds")
	fs.Int64Var(&f.suspend, "suspend-ms", 0, "pause this long after stealing, before retrying")
	fs.Int64Var(&f.refresh, "refresh-ms", 0, "background-refresh the lockfile's mtime at this interval")
	fs.IntVar(&f.pollRetries, "poll-retries", 0, "identity-check sub-attempts per outer iteration (0: use default)")
	fs.Int64Var(&f.pollMax, "poll-max-sleep-ms", 0, "cap on the random sleep between poll sub-attempts")
	fs.StringVar(&f.configPath, "config", "", "load a JSONC settings file (default: root/config.jsonc)")
	fs.Var(&f.debug, "debug", "verbose trace to stderr (true|false|nil)")
	fs.Lookup("debug").NoOptDefVal = "true"
	fs.Var(&f.dontClean, "dont-clean", "skip process-exit cleanup registration")
	fs.Lookup("dont-clean").NoOptDefVal = "true"
	fs.Var(&f.dontSweep, "dont-sweep", "skip the dead-peer sweep at acquire time")
	fs.Lookup("dont-sweep").NoOptDefVal = "true"
	return f
}

// resolve builds the effective LockConfig: start from lock.DefaultConfig(),
// overlay the config file (if any), then overlay explicit CLI flags.
func (f *lockFlags) resolve() (lock.LockConfig, *audit.Writer, error) {
	base := lock.DefaultConfig()

	rootDir, err := root.Find()
	if err != nil {
		return lock.LockConfig{}, nil, err
	}
	if err := root.EnsureDir(rootDir); err != nil {
		return lock.LockConfig{}, nil, err
	}

	path := f.configPath
	if path == "" {
		path = root.ConfigPath(rootDir)
	}
	fileCfg, err := cfgfile.Load(path)
	if err != nil {
		return lock.LockConfig{}, nil, err
	}
	base = cfgfile.Merge(base, fileCfg)

	if f.retries != lock.Infinite {
		base.Retries = f.retries
	}
	base = overlayMillis(base, f)
	base.Debug = f.debug.Resolve(base.Debug)
	base.DontClean = f.dontClean.Resolve(base.DontClean)
	base.DontSweep = f.dontSweep.Resolve(base.DontSweep)
	if base.Debug {
		base.Logger = log.New(os.Stderr, "nfslock: ", log.LstdFlags)
	}

	auditor := audit.NewWriter(rootDir)
	base.Audit = auditor
	return base, auditor, nil
}

func cmdLock(args []string) int {
	fs := pflag.NewFlagSet("lock", pflag.ContinueOnError)
	lf := registerLockFlags(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: nfslock lock [flags] <path>")
		return ExitUsage
	}
	target := fs.Arg(0)

	cfg, _, err := lf.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	_, err = lock.Lock(target, cfg)
	if err != nil {
		return reportAcquireError(target, err)
	}
	fmt.Printf("acquired lock %q\n", target)
	return ExitOK
}

func cmdUnlock(args []string) int {
	fs := pflag.NewFlagSet("unlock", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: nfslock unlock <path>")
		return ExitUsage
	}
	target := fs.Arg(0)

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("lock %q already gone\n", target)
			return ExitOK
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	fmt.Printf("removed lock %q\n", target)
	return ExitOK
}

func reportAcquireError(target string, err error) int {
	switch {
	case errors.Is(err, lock.ErrTimeout):
		fmt.Fprintf(os.Stderr, "error: timed out waiting for lock %q: %v\n", target, err)
		return ExitTimeout
	case errors.Is(err, lock.ErrMaxTries):
		fmt.Fprintf(os.Stderr, "error: lock %q held by another process: %v\n", target, err)
		return ExitLockHeld
	case errors.Is(err, lock.ErrNFS):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitNFS
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
}

func overlayMillis(base lock.LockConfig, f *lockFlags) lock.LockConfig {
	set := func(ms int64) (v int64, ok bool) { return ms, ms != 0 }
	// Timeout's zero value is a meaningful, spec-mandated setting (fail
	// immediately unless won during the first polling phase), so unlike
	// every other duration flag here it can't use "nonzero means passed" —
	// the flag default is lock.NoTimeout (-1), and only that sentinel means
	// "not passed".
	if f.timeout != int64(lock.NoTimeout) {
		base.Timeout = millis(f.timeout)
	}
	if v, ok := set(f.minSleep); ok {
		base.MinSleep = millis(v)
	}
	if v, ok := set(f.maxSleep); ok {
		base.MaxSleep = millis(v)
	}
	if v, ok := set(f.sleepInc); ok {
		base.SleepInc = millis(v)
	}
	if v, ok := set(f.maxAge); ok {
		base.MaxAge = millis(v)
	}
	if v, ok := set(f.suspend); ok {
		base.Suspend = millis(v)
	}
	if v, ok := set(f.refresh); ok {
		base.Refresh = millis(v)
	}
	if f.pollRetries != 0 {
		base.PollRetries = f.pollRetries
	}
	if v, ok := set(f.pollMax); ok {
		base.PollMaxSleep = millis(v)
	}
	return base
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
