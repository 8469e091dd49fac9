package fraud

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRecorderCapacity bounds the in-memory suspicious activity log.
const DefaultRecorderCapacity = 1000

// Recorder keeps a bounded, in-memory log of suspicious activity events.
// It is process-local and volatile: entries do not survive a restart.
// The buffer is FIFO; once full, the oldest entry is evicted on append.
type Recorder struct {
	mu       sync.Mutex
	entries  []*Entry
	capacity int
	now      func() time.Time
}

// NewRecorder creates a recorder with the given capacity
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{
		entries:  make([]*Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// WithNow overrides the recorder's clock (used in tests)
func (r *Recorder) WithNow(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record appends an event, evicting the oldest entry when at capacity
func (r *Recorder) Record(actorID uuid.UUID, eventType EventType, metadata map[string]interface{}) *Entry {
	entry := &Entry{
		ActorID:   actorID,
		EventType: eventType,
		Metadata:  metadata,
		Timestamp: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.capacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, entry)

	return entry
}

// Query returns entries most-recent-first, optionally filtered by event type,
// capped at limit. A non-positive limit returns all matching entries.
func (r *Recorder) Query(eventType EventType, limit int) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := limit
	if capacity <= 0 {
		capacity = len(r.entries)
	}
	results := make([]*Entry, 0, capacity)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if eventType != "" && r.entries[i].EventType != eventType {
			continue
		}
		results = append(results, r.entries[i])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Len returns the number of buffered entries
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear empties the buffer and returns the number of entries removed
func (r *Recorder) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := len(r.entries)
	r.entries = r.entries[:0]
	return removed
}
