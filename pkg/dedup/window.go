// Package dedup suppresses repeats of the same key inside a fixed window.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is how long a join event suppresses repeats for the same user.
const DefaultWindow = 10 * time.Second

type entry struct {
	seq  uint64
	seen time.Time
}

// Window remembers keys for a fixed duration. Each insert schedules its own
// delete; a later insert for the same key supersedes the earlier timer.
type Window struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]entry
	seq     uint64
	timers  map[string]*time.Timer
}

func New(ttl time.Duration) *Window {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock is New with an injectable clock. Expiry is decided by the
// clock; the scheduled deletes only reclaim memory.
func NewWithClock(ttl time.Duration, now func() time.Time) *Window {
	return &Window{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
		timers:  make(map[string]*time.Timer),
	}
}

// Admit reports whether key is new within the window and, if so, records it.
// The check and the insert are one atomic step.
func (w *Window) Admit(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if e, ok := w.entries[key]; ok && now.Sub(e.seen) < w.ttl {
		return false
	}

	w.seq++
	seq := w.seq
	w.entries[key] = entry{seq: seq, seen: now}
	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(w.ttl, func() { w.expire(key, seq) })
	return true
}

func (w *Window) expire(key string, seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[key]; ok && e.seq == seq {
		delete(w.entries, key)
		delete(w.timers, key)
	}
}

// Len is the number of keys currently remembered.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Stop cancels pending deletes.
func (w *Window) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, t := range w.timers {
		t.Stop()
		delete(w.timers, key)
	}
}
