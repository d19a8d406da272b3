// Package primary implements the write side of the cluster: the sequence
// allocator, the authoritative in-memory log, and the coordinator that ties
// them to the replicator.
package primary

import "sync"

// Log is the primary's append-only message log plus its id allocator.
//
// A single mutex covers both the counter and the slice so that the order in
// which ids are handed out is exactly the order payloads land in the log.
// Entry with id n lives at index n-1. Ids are dense, start at 1, and are
// never reused. No network work happens under this lock.
type Log struct {
	mu      sync.Mutex
	nextID  int64
	entries []string
}

// NewLog returns an empty log. The first allocated id is 1.
func NewLog() *Log {
	return &Log{}
}

// Append assigns the next id to content, stores it, and returns the id.
func (l *Log) Append(content string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.entries = append(l.entries, content)
	return l.nextID
}

// Snapshot returns a defensive copy of all committed payloads in id order.
func (l *Log) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of committed entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
