package primary

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogAppend verifies ids are dense, start at 1, and match the payload
// positions in the snapshot.
func TestLogAppend(t *testing.T) {
	l := NewLog()

	assert.Equal(t, int64(1), l.Append("first"))
	assert.Equal(t, int64(2), l.Append("second"))
	assert.Equal(t, int64(3), l.Append("third"))

	assert.Equal(t, []string{"first", "second", "third"}, l.Snapshot())
	assert.Equal(t, 3, l.Len())
}

// TestLogSnapshotIsACopy verifies readers cannot mutate the log through a
// snapshot.
func TestLogSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	l.Append("original")

	snap := l.Snapshot()
	snap[0] = "tampered"

	assert.Equal(t, []string{"original"}, l.Snapshot())
}

// TestLogConcurrentAppend verifies that under concurrent appends every id
// in 1..n is assigned exactly once and each payload sits at its id's index.
func TestLogConcurrentAppend(t *testing.T) {
	const writers = 8
	const perWriter = 50

	l := NewLog()

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := l.Append(fmt.Sprintf("msg-%d", i))
				mu.Lock()
				require.False(t, seen[id], "id %d assigned twice", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := writers * perWriter
	assert.Equal(t, total, l.Len())
	for id := int64(1); id <= int64(total); id++ {
		assert.True(t, seen[id], "id %d never assigned", id)
	}
}
