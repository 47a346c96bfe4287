// Package progress is the in-process event bus that feeds live job
// updates to streaming clients. Each job gets a bounded buffer; when a
// job produces events faster than clients drain them the oldest events
// are dropped, never the newest.
package progress

import (
	"sync"
	"time"
)

// bufferCap is the per-job event buffer size.
const bufferCap = 100

// Event is one progress update for a job. Data carries event-specific
// fields such as counts or error text.
type Event struct {
	Type      string                 `json:"type"`
	JobID     string                 `json:"job_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type jobBuffer struct {
	events    []Event
	completed bool
}

// Bus holds per-job event buffers. The zero value is not usable; use NewBus.
type Bus struct {
	mu   sync.Mutex
	jobs map[string]*jobBuffer
}

// NewBus builds an empty bus.
func NewBus() *Bus {
	return &Bus{jobs: map[string]*jobBuffer{}}
}

// Publish appends an event to the job's buffer, evicting the oldest event
// when the buffer is full. Publish never blocks the producer.
func (b *Bus) Publish(jobID, eventType string, data map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.jobs[jobID]
	if buf == nil {
		buf = &jobBuffer{}
		b.jobs[jobID] = buf
	}

	if len(buf.events) >= bufferCap {
		buf.events = buf.events[1:]
	}
	buf.events = append(buf.events, Event{
		Type:      eventType,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// Complete marks the job's stream as finished. Buffered events remain
// drainable; readers use the flag to stop polling after the final drain.
func (b *Bus) Complete(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.jobs[jobID]
	if buf == nil {
		buf = &jobBuffer{}
		b.jobs[jobID] = buf
	}
	buf.completed = true
}

// Drain returns all buffered events for the job and clears the buffer.
// The second return reports whether the job has been marked complete.
func (b *Bus) Drain(jobID string) ([]Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.jobs[jobID]
	if buf == nil {
		return nil, false
	}

	events := buf.events
	buf.events = nil
	return events, buf.completed
}

// Clear removes all state for a job.
func (b *Bus) Clear(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.jobs, jobID)
}
