package event

import (
	"sync"
	"time"
)

// DefaultQueueCapacity is the queue bound used when none is configured.
const DefaultQueueCapacity = 1000

// Item is one queued event awaiting the next drain.
type Item struct {
	Type     string
	Payload  Payload
	QueuedAt time.Time
}

// Queue is a bounded FIFO of pending events.
//
// When full, Push evicts the oldest item to make room and counts the
// eviction. Items are never dropped silently.
type Queue struct {
	mu        sync.Mutex
	buf       []Item
	head      int
	size      int
	evictions uint64
}

// NewQueue creates a queue holding at most capacity items.
// A non-positive capacity uses DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{buf: make([]Item, capacity)}
}

// Push appends item. When the queue was full, the oldest item is removed
// to make room and returned with ok set.
func (q *Queue) Push(item Item) (evicted Item, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.buf) {
		evicted = q.buf[q.head]
		q.buf[q.head] = Item{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.evictions++
		ok = true
	}

	tail := (q.head + q.size) % len(q.buf)
	q.buf[tail] = item
	q.size++
	return evicted, ok
}

// Drain removes and returns every queued item in FIFO order.
// Items pushed after Drain returns wait for the next call.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil
	}

	items := make([]Item, q.size)
	for i := range items {
		idx := (q.head + i) % len(q.buf)
		items[i] = q.buf[idx]
		q.buf[idx] = Item{}
	}
	q.head = 0
	q.size = 0
	return items
}

// Purge discards every queued item and returns how many were dropped.
// Purged items are not counted as evictions.
func (q *Queue) Purge() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.size
	for i := 0; i < q.size; i++ {
		q.buf[(q.head+i)%len(q.buf)] = Item{}
	}
	q.head = 0
	q.size = 0
	return n
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue bound.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Evictions returns how many items overflow has evicted so far.
func (q *Queue) Evictions() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evictions
}
