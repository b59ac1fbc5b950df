package events

import (
	"sync"
	"testing"
	"time"
)

func TestHub_PublishFansOut(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer a.Close()
	defer b.Close()

	hub.Publish(Event{Type: TypeCreated, EntityType: "incident", EntityID: "inc-1"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case evt := <-sub.C:
			if evt.EntityID != "inc-1" {
				t.Errorf("EntityID = %q, want inc-1", evt.EntityID)
			}
			if evt.Timestamp.IsZero() {
				t.Error("expected timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	hub.buffer = 1
	slow := hub.Subscribe()

	hub.Publish(Event{Type: TypeUpdated})
	hub.Publish(Event{Type: TypeUpdated})

	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("Subscribers() = %d, want 0 after overflow", n)
	}

	// buffered event is still readable, then the channel is closed
	if _, ok := <-slow.C; !ok {
		t.Fatal("expected the buffered event")
	}
	if _, ok := <-slow.C; ok {
		t.Fatal("expected the channel to be closed")
	}
	slow.Close()
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	sub.Close()
	sub.Close()
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(Event{Type: TypeAction})
		}()
	}
	wg.Wait()

	received := 0
	for received < 10 {
		select {
		case <-sub.C:
			received++
		case <-time.After(time.Second):
			t.Fatalf("received %d events, want 10", received)
		}
	}
}
