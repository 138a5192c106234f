// Package watermark tracks the newest modification time seen across a file
// and everything it depends on.
package watermark

import (
	"sync"
	"time"
)

// Watermark is a max-time accumulator safe for concurrent use.
// The zero value is ready to use.
type Watermark struct {
	mu sync.Mutex
	t  time.Time
}

// New returns a watermark starting at t
func New(t time.Time) *Watermark {
	return &Watermark{t: t}
}

// Observe raises the watermark to t if t is newer
func (w *Watermark) Observe(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t.After(w.t) {
		w.t = t
	}
}

// Time returns the current watermark
func (w *Watermark) Time() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.t
}

// Max returns the newer of a and b
func Max(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}

	return a
}
