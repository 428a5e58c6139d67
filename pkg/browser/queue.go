package browser

import (
	"sync"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// eventQueue decouples playwright callbacks from the consumer. Push never
// blocks; events are delivered on Out in push order.
type eventQueue struct {
	mu     sync.Mutex
	items  []mirror.Event
	closed bool

	wake chan struct{}
	done chan struct{}
	out  chan mirror.Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan mirror.Event),
	}
	go q.pump()
	return q
}

// Push appends ev. Events pushed after Close are dropped.
func (q *eventQueue) Push(ev mirror.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Out returns the delivery channel. It is closed after Close.
func (q *eventQueue) Out() <-chan mirror.Event {
	return q.out
}

// Close stops delivery. Undelivered events are discarded.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len returns the number of undelivered events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) pump() {
	defer close(q.out)
	for {
		ev, ok := q.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}
		select {
		case q.out <- ev:
		case <-q.done:
			return
		}
	}
}

func (q *eventQueue) pop() (mirror.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return mirror.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = mirror.Event{}
	q.items = q.items[1:]
	return ev, true
}
