// Package profiling records per-tick section timings.
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Tracker accumulates time per named section for the current tick and keeps
// the worst tick seen for each section. The zero value is ready to use.
type Tracker struct {
	mu    sync.Mutex
	tick  map[string]time.Duration
	worst map[string]time.Duration
	ticks uint64
}

// Track returns a stop function that records the elapsed time under name.
// Usage: defer tracker.Track("engine.Dispatch")()
func (t *Tracker) Track(name string) func() {
	start := time.Now()
	return func() {
		t.Add(name, time.Since(start))
	}
}

// Add records d under name.
func (t *Tracker) Add(name string, d time.Duration) {
	t.mu.Lock()
	if t.tick == nil {
		t.tick = make(map[string]time.Duration)
	}
	t.tick[name] += d
	t.mu.Unlock()
}

// Reset closes the current tick. Call at the start of each tick.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.worst == nil {
		t.worst = make(map[string]time.Duration)
	}
	for k, v := range t.tick {
		if v > t.worst[k] {
			t.worst[k] = v
		}
		delete(t.tick, k)
	}
	t.ticks++
}

// Ticks is the number of completed ticks.
func (t *Tracker) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Snapshot returns a copy of the current tick's totals.
func (t *Tracker) Snapshot() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyMap(t.tick)
}

// Worst returns the slowest recorded tick per section.
func (t *Tracker) Worst() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyMap(t.worst)
}

func copyMap(m map[string]time.Duration) map[string]time.Duration {
	out := make(map[string]time.Duration, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TopN formats the n largest totals of the current tick.
// Example: "engine.Apply:4.2ms, engine.Dispatch:2.1ms"
func (t *Tracker) TopN(n int) string {
	return Format(t.Snapshot(), n)
}

// Format renders the n largest entries of totals, largest first. Ties sort
// by name.
func Format(totals map[string]time.Duration, n int) string {
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(totals))
	for k, v := range totals {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	n = min(max(n, 0), len(list))
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%.1fms", p.name, float64(p.dur.Microseconds())/1000))
	}
	return strings.Join(parts, ", ")
}

// SumWithPrefix totals the current tick's sections whose name starts with
// prefix.
func (t *Tracker) SumWithPrefix(prefix string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for k, v := range t.tick {
		if strings.HasPrefix(k, prefix) {
			total += v
		}
	}
	return total
}
