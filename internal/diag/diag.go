// Package diag accumulates per-package compile diagnostics in memory,
// mirroring the original build tool's logs::append(package, text) calls
// alongside the aggregate error/warning strings the scheduler returns.
// The record is kept in memory during a build; Save and Load persist the
// whole record as a single JSON file so that a later "bsb log <package>"
// invocation can print it.
package diag

import (
	"encoding/json"
	"os"
	"sync"

	"golang.org/x/xerrors"
)

// Log accumulates diagnostic text per package name. Safe for concurrent
// use; the scheduler itself appends only from its sequential round fold.
type Log struct {
	mu    sync.Mutex
	byPkg map[string][]string
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{byPkg: map[string][]string{}}
}

// Append records text under pkg's log.
func (l *Log) Append(pkg, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPkg[pkg] = append(l.byPkg[pkg], text)
}

// For returns the accumulated diagnostic text for pkg, in append order.
func (l *Log) For(pkg string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.byPkg[pkg]))
	copy(out, l.byPkg[pkg])
	return out
}

// Save writes the log to path as JSON, so that a later "bsb log <package>"
// invocation (a separate process) can read back the previous build's
// diagnostics.
func (l *Log) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := json.MarshalIndent(l.byPkg, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshaling log: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return xerrors.Errorf("writing log %s: %w", path, err)
	}
	return nil
}

// Load reads a Log previously written by Save. A missing file is not an
// error: it just means no build has run yet, and Load returns an empty
// Log.
func Load(path string) (*Log, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLog(), nil
	}
	if err != nil {
		return nil, xerrors.Errorf("reading log %s: %w", path, err)
	}
	l := NewLog()
	if err := json.Unmarshal(b, &l.byPkg); err != nil {
		return nil, xerrors.Errorf("parsing log %s: %w", path, err)
	}
	return l, nil
}
