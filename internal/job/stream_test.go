package job

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestDispatcher_SequencesAreDense(t *testing.T) {
	d := NewDispatcher()

	for i := 0; i < 5; i++ {
		ev := d.Publish(EventInfo, map[string]any{"i": i})
		assert.Equal(t, i, ev.Seq)
	}

	log := d.Events()
	require.Len(t, log, 5)
	for i, ev := range log {
		assert.Equal(t, i, ev.Seq)
	}
}

func TestDispatcher_LiveSubscriberReceivesEverything(t *testing.T) {
	d := NewDispatcher()
	ch, cancel := d.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		d.Publish(EventItem, i)
	}

	events := drain(t, ch, 10)
	for i, ev := range events {
		assert.Equal(t, i, ev.Seq)
	}
}

func TestDispatcher_LateSubscriberReplaysWithoutGaps(t *testing.T) {
	d := NewDispatcher()

	for i := 0; i < 5; i++ {
		d.Publish(EventItem, fmt.Sprintf("early-%d", i))
	}

	ch, cancel := d.Subscribe()
	defer cancel()

	for i := 5; i < 10; i++ {
		d.Publish(EventItem, fmt.Sprintf("late-%d", i))
	}

	events := drain(t, ch, 10)
	require.Len(t, events, 10)
	for i, ev := range events {
		assert.Equal(t, i, ev.Seq, "replay then live must form one dense sequence")
	}
}

func TestDispatcher_SubscribeAfterCloseYieldsLogAndCloses(t *testing.T) {
	d := NewDispatcher()
	d.Publish(EventItem, "a")
	d.Publish(EventComplete, "b")
	d.Close()

	ch, cancel := d.Subscribe()
	defer cancel()

	events := drain(t, ch, 2)
	require.Len(t, events, 2)

	_, open := <-ch
	assert.False(t, open, "channel closes after replaying a closed dispatcher's log")
}

func TestDispatcher_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	d := NewDispatcher()
	ch, cancel := d.Subscribe()
	defer cancel()

	// Overflow the subscriber buffer without draining; Publish must not hang.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+100; i++ {
			d.Publish(EventItem, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The overwhelmed subscriber gets dropped, surfaced as a closed channel.
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("slow subscriber channel never closed")
		}
	}
}

func TestDispatcher_CancelUnregisters(t *testing.T) {
	d := NewDispatcher()
	_, cancel := d.Subscribe()
	cancel()

	// Publishing after cancel must not panic or block.
	d.Publish(EventInfo, "after cancel")
	assert.Len(t, d.Events(), 1)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	d.Close()
	d.Close()
	assert.NotPanics(t, func() { d.Publish(EventInfo, "x") })
}
