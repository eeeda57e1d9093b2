// Package writecoalescer delays persisted writes behind a quiet window so a
// user typing into a field produces one write, not one per keystroke.
// Writes are keyed by (entity id, field): a new edit replaces the pending
// one for the same key, it is never queued behind it. Only the last value
// within the window survives.
package writecoalescer

import (
	"log/slog"
	"sync"
	"time"
)

type WriteFn func()

type Coalescer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingWrite
	stopped bool
}

type pendingWrite struct {
	timer *time.Timer
	fn    WriteFn
}

func New(window time.Duration) *Coalescer {
	return &Coalescer{
		window:  window,
		pending: make(map[string]*pendingWrite),
	}
}

// Key builds the coalescing key for an entity field.
func Key(entityID, field string) string {
	return entityID + ":" + field
}

// Schedule registers fn to run after the quiet window. A pending write for
// the same key is dropped and its timer stopped; intermediate values are
// intentionally lost.
func (c *Coalescer) Schedule(key string, fn WriteFn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		// shutting down, write through immediately
		go fn()
		return
	}

	if prev, ok := c.pending[key]; ok {
		prev.timer.Stop()
	}

	pw := &pendingWrite{fn: fn}
	pw.timer = time.AfterFunc(c.window, func() {
		c.mu.Lock()
		if c.pending[key] == pw {
			delete(c.pending, key)
		}
		c.mu.Unlock()
		fn()
	})
	c.pending[key] = pw
}

// Flush fires every pending write immediately. Called on shutdown so edits
// made just before exit are not lost.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	writes := make([]WriteFn, 0, len(c.pending))
	for key, pw := range c.pending {
		if pw.timer.Stop() {
			writes = append(writes, pw.fn)
		}
		delete(c.pending, key)
	}
	c.stopped = true
	c.mu.Unlock()

	slog.Debug("flushing coalesced writes", slog.Int("count", len(writes)))

	for _, fn := range writes {
		fn()
	}
}
