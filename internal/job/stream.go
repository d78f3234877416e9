package job

import (
	"sync"
	"time"
)

// subscriberBuffer is the headroom beyond the replayed log for live events.
// A subscriber that falls this far behind is dropped; on reconnect it
// replays the log and resumes with no gaps.
const subscriberBuffer = 256

// Dispatcher converts a job's completion events into a resumable, ordered
// feed. A subscriber joining late is first replayed the full event log under
// the lock, then receives live events, so reconnecting clients resume
// without duplicates or gaps. Job execution never blocks on any observer.
type Dispatcher struct {
	mu     sync.Mutex
	log    []Event
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]chan Event)}
}

// Publish appends an event to the log and fans it out to live subscribers.
// Returns the sequenced event as recorded.
func (d *Dispatcher) Publish(t EventType, data any) Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev := Event{
		Type:      t,
		Seq:       len(d.log),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	d.log = append(d.log, ev)

	for id, ch := range d.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber stopped draining; drop it rather than block the job.
			close(ch)
			delete(d.subs, id)
		}
	}
	return ev
}

// Subscribe returns a channel that first yields every event already in the
// log, then live events, plus a cancel function the subscriber must call
// when done. For a closed dispatcher the channel yields the log and closes.
func (d *Dispatcher) Subscribe() (<-chan Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := make(chan Event, len(d.log)+subscriberBuffer)
	for _, ev := range d.log {
		ch <- ev
	}
	if d.closed {
		close(ch)
		return ch, func() {}
	}

	id := d.nextID
	d.nextID++
	d.subs[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if ch, ok := d.subs[id]; ok {
			close(ch)
			delete(d.subs, id)
		}
	}
	return ch, cancel
}

// Close ends the feed; live subscriber channels are closed after whatever
// they have already been sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
}

// Events returns a copy of the event log so far.
func (d *Dispatcher) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.log))
	copy(out, d.log)
	return out
}
