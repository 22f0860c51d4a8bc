package notify

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

type event struct {
	balance  *BalanceUpdate
	announce *Announcement
}

// Queue hands events to a single delivery goroutine so callers never wait on
// transport I/O. When the buffer is full the event is dropped.
type Queue struct {
	next    Notifier
	events  chan event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewQueue(next Notifier, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		next:   next,
		events: make(chan event, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for ev := range q.events {
		switch {
		case ev.balance != nil:
			q.next.BalanceChanged(*ev.balance)
		case ev.announce != nil:
			q.next.Announce(*ev.announce)
		}
	}
}

func (q *Queue) push(ev event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.events <- ev:
	default:
		n := q.dropped.Add(1)
		log.WithField("dropped_total", n).Warn("⚠️ notification queue full, dropping event")
	}
}

func (q *Queue) BalanceChanged(u BalanceUpdate) { q.push(event{balance: &u}) }
func (q *Queue) Announce(a Announcement)        { q.push(event{announce: &a}) }

// Dropped reports how many events were discarded.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Close stops accepting events and waits for the buffer to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	<-q.done
}
