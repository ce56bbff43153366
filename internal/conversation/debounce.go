package conversation

import (
	"strings"
	"sync"
	"time"
)

// Debouncer batches rapid-fire message fragments per sender. Each new
// fragment restarts the sender's timer, so the flush only fires after the
// sender has been quiet for the full window. Different senders never share a
// timer.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	pending map[string]*pendingBatch
}

type pendingBatch struct {
	parts []string
	timer *time.Timer
	flush func(full string)
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = 15 * time.Second
	}
	return &Debouncer{wait: wait, pending: map[string]*pendingBatch{}}
}

// Add queues one fragment for sender and (re)arms the timer. When the window
// elapses, flush runs once in its own goroutine with all fragments joined in
// arrival order.
func (d *Debouncer) Add(senderID, text string, flush func(full string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	batch, ok := d.pending[senderID]
	if ok {
		batch.parts = append(batch.parts, text)
		batch.timer.Reset(d.wait)
		return
	}

	batch = &pendingBatch{parts: []string{text}, flush: flush}
	batch.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		// A Reset racing with an expired timer re-arms it, so this closure
		// can run again after the batch was already flushed (or after a new
		// batch took the slot). Only the registered batch may flush.
		if d.pending[senderID] != batch {
			d.mu.Unlock()
			return
		}
		full := strings.Join(batch.parts, " ")
		delete(d.pending, senderID)
		d.mu.Unlock()
		flush(full)
	})
	d.pending[senderID] = batch
}

// Flush fires a sender's batch immediately, if one is pending.
func (d *Debouncer) Flush(senderID string) {
	d.mu.Lock()
	batch, ok := d.pending[senderID]
	if !ok {
		d.mu.Unlock()
		return
	}
	batch.timer.Stop()
	full := strings.Join(batch.parts, " ")
	delete(d.pending, senderID)
	d.mu.Unlock()
	batch.flush(full)
}

// FlushAll fires every pending batch immediately. Called on shutdown so
// queued fragments still get a reply before the process exits.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	batches := make(map[string]*pendingBatch, len(d.pending))
	for id, batch := range d.pending {
		batch.timer.Stop()
		batches[id] = batch
		delete(d.pending, id)
	}
	d.mu.Unlock()

	for _, batch := range batches {
		batch.flush(strings.Join(batch.parts, " "))
	}
}

// Pending reports how many senders have a batch waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
