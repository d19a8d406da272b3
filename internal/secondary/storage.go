// Package secondary implements a replica's ordered message storage.
package secondary

import (
	"sort"
	"sync"
)

// Storage absorbs replicated entries that may arrive out of order, more
// than once, or with gaps, and exposes only what is safe to show a reader:
// the contiguous prefix of ids starting at 1.
//
// Two structures are kept consistent under one mutex: a sparse id→payload
// map for deduplication, and an ascending id slice for ordered reads. The
// id slice is always exactly the sorted key set of the map.
type Storage struct {
	mu        sync.Mutex
	messages  map[int64]string
	sortedIDs []int64
}

// NewStorage returns empty storage.
func NewStorage() *Storage {
	return &Storage{
		messages: make(map[int64]string),
	}
}

// Add stores one entry. Returns true if the id was new, false if it was
// already present; a duplicate leaves storage untouched. Either outcome is
// a success for the sender.
func (s *Storage) Add(id int64, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[id]; exists {
		return false
	}

	s.messages[id] = content

	// Binary insertion keeps sortedIDs ascending without a full re-sort.
	i := sort.Search(len(s.sortedIDs), func(i int) bool {
		return s.sortedIDs[i] >= id
	})
	s.sortedIDs = append(s.sortedIDs, 0)
	copy(s.sortedIDs[i+1:], s.sortedIDs[i:])
	s.sortedIDs[i] = id

	return true
}

// All returns the payloads of the contiguous prefix 1..m, where m is the
// largest id such that every id up to it is present. Entries past the first
// gap stay hidden until the gap fills, so a reader never observes a message
// whose predecessor is missing.
func (s *Storage) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.sortedIDs))
	expected := int64(1)
	for _, id := range s.sortedIDs {
		if id != expected {
			break
		}
		out = append(out, s.messages[id])
		expected++
	}
	return out
}

// Len returns the total number of stored entries, including those beyond
// the first gap.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
