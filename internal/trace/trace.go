// Package trace provides the live terminal status display used by the
// scheduler in batch mode: one line per worker, overwritten in place,
// plus a running "N of M modules" header line. It is a trimmed port of
// the teacher's status-line machinery, reduced to what this module's
// scheduler actually needs.
package trace

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// IsTerminal reports whether stdout is attached to a terminal; status
// refreshing is a no-op otherwise (e.g. when output is redirected to a
// log file or piped into another program).
var IsTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

// Status is a fixed-height, in-place-updated block of status lines.
type Status struct {
	mu         sync.Mutex
	lines      []string
	lastRender time.Time
}

// NewStatus returns a Status with n lines (one header plus one per
// worker, conventionally).
func NewStatus(n int) *Status {
	return &Status{lines: make([]string, n)}
}

// Set updates line idx to text and re-renders the block, throttled to
// avoid the terminal-writing overhead dominating short compiles.
func (s *Status) Set(idx int, text string) {
	if !IsTerminal {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if diff := len(s.lines[idx]) - len(text); diff > 0 {
		text += strings.Repeat(" ", diff)
	}
	s.lines[idx] = text
	if time.Since(s.lastRender) < 100*time.Millisecond {
		return
	}
	s.lastRender = time.Now()
	s.render()
}

// Refresh force-renders the block regardless of the throttle, used after
// printing something else (e.g. a failure message) that would otherwise
// get overwritten by a stale in-place render.
func (s *Status) Refresh() {
	if !IsTerminal {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRender = time.Now()
	s.render()
}

// render must be called with s.mu held.
func (s *Status) render() {
	maxLen := 0
	for _, l := range s.lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	for _, l := range s.lines {
		if len(l) < maxLen {
			l += strings.Repeat(" ", maxLen-len(l))
		}
		fmt.Println(l)
	}
	fmt.Printf("\033[%dA", len(s.lines)) // restore cursor position
}

// Tracker adapts a Status into the increment/set-total/show-progress
// shape the Scheduler takes as input.
type Tracker struct {
	Status  *Status
	total   int
	current int
	mu      sync.Mutex
}

// NewTracker returns a Tracker whose header line (index 0) reports
// progress and whose remaining lines (1..workers) report per-worker
// status.
func NewTracker(workers int) *Tracker {
	return &Tracker{Status: NewStatus(workers + 1)}
}

// SetTotal implements the scheduler's set-total callback.
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	t.total = n
	t.mu.Unlock()
	t.Status.Set(0, fmt.Sprintf("0 of %d modules", n))
}

// Inc implements the scheduler's progress-increment callback.
func (t *Tracker) Inc() {
	t.mu.Lock()
	t.current++
	cur, total := t.current, t.total
	t.mu.Unlock()
	t.Status.Set(0, fmt.Sprintf("%d of %d modules", cur, total))
}

// WorkerStatus updates the status line for worker i (1-indexed to leave
// room for the header line).
func (t *Tracker) WorkerStatus(i int, text string) {
	t.Status.Set(i, text)
}
