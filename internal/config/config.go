// Package config loads and saves nfslock's on-disk settings: a HuJSON
// (JSON-with-comments) file of LockConfig overrides, parsed the way the
// calvinalkan-agent-task example's own project config loader does
// (hujson.Standardize then encoding/json), and written back atomically
// with natefinch/atomic the way its internal/fs.real writer does — a
// temp-then-rename is exactly right here, unlike the lockfile's own U/T
// files, because a config file's identity never needs to be compared by
// inode.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/nikolasavic/nfslock/internal/lock"
)

// File is the on-disk shape of an nfslock config file. Every field is a
// pointer so "absent" and "explicitly zero" are distinguishable when
// merging onto LockConfig defaults.
type File struct {
	Retries      *int    `json:"retries,omitempty"`
	MinSleepMS   *int64  `json:"min_sleep_ms,omitempty"`
	MaxSleepMS   *int64  `json:"max_sleep_ms,omitempty"`
	SleepIncMS   *int64  `json:"sleep_inc_ms,omitempty"`
	MaxAgeMS     *int64  `json:"max_age_ms,omitempty"`
	SuspendMS    *int64  `json:"suspend_ms,omitempty"`
	RefreshMS    *int64  `json:"refresh_ms,omitempty"`
	TimeoutMS    *int64  `json:"timeout_ms,omitempty"`
	PollRetries  *int    `json:"poll_retries,omitempty"`
	PollMaxMS    *int64  `json:"poll_max_sleep_ms,omitempty"`
	DontClean    *bool   `json:"dont_clean,omitempty"`
	DontSweep    *bool   `json:"dont_sweep,omitempty"`
	Debug        *bool   `json:"debug,omitempty"`
}

// Load reads and parses a HuJSON config file. A missing file is not an
// error: it returns a zero File, letting the caller fall back entirely to
// LockConfig's own defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return File{}, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var f File
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Save atomically writes f to path as indented JSON. natefinch/atomic
// writes to a sibling temp file and renames over the target, so readers
// never observe a partially written config file.
func Save(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	data = append(data, '\n')
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Merge overlays f onto base, leaving any field f did not set untouched.
// Callers typically pass lock.DefaultConfig() as base.
func Merge(base lock.LockConfig, f File) lock.LockConfig {
	base.Retries = intOr(f.Retries, base.Retries)
	if f.MinSleepMS != nil {
		base.MinSleep = durationMS(f.MinSleepMS)
	}
	if f.MaxSleepMS != nil {
		base.MaxSleep = durationMS(f.MaxSleepMS)
	}
	if f.SleepIncMS != nil {
		base.SleepInc = durationMS(f.SleepIncMS)
	}
	if f.MaxAgeMS != nil {
		base.MaxAge = durationMS(f.MaxAgeMS)
	}
	if f.SuspendMS != nil {
		base.Suspend = durationMS(f.SuspendMS)
	}
	if f.RefreshMS != nil {
		base.Refresh = durationMS(f.RefreshMS)
	}
	if f.TimeoutMS != nil {
		base.Timeout = durationMS(f.TimeoutMS)
	}
	base.PollRetries = intOr(f.PollRetries, base.PollRetries)
	if f.PollMaxMS != nil {
		base.PollMaxSleep = durationMS(f.PollMaxMS)
	}
	base.DontClean = boolOr(f.DontClean, base.DontClean)
	base.DontSweep = boolOr(f.DontSweep, base.DontSweep)
	base.Debug = boolOr(f.Debug, base.Debug)
	return base
}

func durationMS(ms *int64) time.Duration {
	if ms == nil {
		return 0
	}
	return time.Duration(*ms) * time.Millisecond
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
