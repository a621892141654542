package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/sampsyo/band/internal/domain"
)

func TestRoomLazyCreateIsSingleton(t *testing.T) {
	h := New()

	const n = 64
	var wg sync.WaitGroup
	channels := make([]*RoomChannel, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channels[i] = h.Room(7)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if channels[i] != channels[0] {
			t.Fatal("concurrent first access created distinct channels")
		}
	}
	if h.Room(8) == channels[0] {
		t.Fatal("distinct rooms share a channel")
	}
}

func TestFanOut(t *testing.T) {
	h := New()
	rc := h.Room(1)

	ch1, cancel1 := rc.Subscribe()
	ch2, cancel2 := rc.Subscribe()
	defer cancel1()
	defer cancel2()

	ev := domain.VoteEvent{Message: 3, Delta: 1}
	rc.Publish(ev)

	for i, ch := range []<-chan domain.Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got != domain.Event(ev) {
				t.Errorf("subscriber %d got %v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	h := New()
	rc := h.Room(1)

	rc.Publish(domain.VoteEvent{Message: 1, Delta: 1})

	ch, cancel := rc.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("late subscriber received retroactive event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	h := New()
	rc := h.Room(1)

	ch, cancel := rc.Subscribe()
	if rc.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", rc.Subscribers())
	}

	cancel()
	cancel() // idempotent

	if rc.Subscribers() != 0 {
		t.Fatalf("subscribers after cancel = %d, want 0", rc.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}

	// Publishing to a room with no subscribers must not block or panic.
	rc.Publish(domain.VoteEvent{Message: 1, Delta: -1})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := New()
	rc := h.Room(1)

	_, cancel := rc.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			rc.Publish(domain.VoteEvent{Message: domain.MessageID(i), Delta: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
