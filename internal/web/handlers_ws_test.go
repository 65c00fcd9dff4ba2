package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
)

func newTestWSHub() *WSHub {
	return NewWSHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func wsHubCount(h *WSHub) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func TestWSHubAddRemove(t *testing.T) {
	h := newTestWSHub()
	defer h.Stop()

	client := &wsClient{send: make(chan []byte, 16)}
	if err := h.add(client); err != nil {
		t.Fatal(err)
	}
	if got := wsHubCount(h); got != 1 {
		t.Errorf("after add: count = %d, want 1", got)
	}

	h.remove(client)
	if got := wsHubCount(h); got != 0 {
		t.Errorf("after remove: count = %d, want 0", got)
	}
	if _, ok := <-client.send; ok {
		t.Error("send queue should be closed after remove")
	}
}

func TestWSHubBroadcast(t *testing.T) {
	h := newTestWSHub()
	defer h.Stop()

	c1 := &wsClient{send: make(chan []byte, 16)}
	c2 := &wsClient{send: make(chan []byte, 16)}
	if err := h.add(c1); err != nil {
		t.Fatal(err)
	}
	if err := h.add(c2); err != nil {
		t.Fatal(err)
	}

	h.Broadcast(bus.Event{
		Type: bus.EventGesture,
		Data: bus.GestureData{IEEE: "f0:cc:8f:ff:fe:12:3a:4b", Gesture: "on_double_press"},
	})

	for _, c := range []*wsClient{c1, c2} {
		select {
		case msg := <-c.send:
			var ev bus.Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("broadcast payload is not JSON: %v", err)
			}
			if ev.Type != bus.EventGesture {
				t.Errorf("event type = %q, want %q", ev.Type, bus.EventGesture)
			}
		default:
			t.Error("client did not receive broadcast")
		}
	}
}

func TestWSHubSlowClientEviction(t *testing.T) {
	h := newTestWSHub()
	defer h.Stop()

	slow := &wsClient{send: make(chan []byte, 1)}
	fast := &wsClient{send: make(chan []byte, 64)}
	if err := h.add(slow); err != nil {
		t.Fatal(err)
	}
	if err := h.add(fast); err != nil {
		t.Fatal(err)
	}

	// First event fills the slow client's queue; the second evicts it.
	h.Broadcast(bus.Event{Type: bus.EventDeviceSeen})
	h.Broadcast(bus.Event{Type: bus.EventDeviceSeen})

	h.mu.Lock()
	_, slowPresent := h.clients[slow]
	_, fastPresent := h.clients[fast]
	h.mu.Unlock()

	if slowPresent {
		t.Error("slow client should have been evicted")
	}
	if !fastPresent {
		t.Error("fast client should still be present")
	}
	if _, ok := <-slow.send; !ok {
		t.Error("evicted client's first queued message was lost")
	}
	if _, ok := <-slow.send; ok {
		t.Error("evicted client's send queue should be closed")
	}
}

func TestWSHubBroadcastNeverBlocks(t *testing.T) {
	h := newTestWSHub()
	defer h.Stop()

	full := &wsClient{send: make(chan []byte)}
	if err := h.add(full); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			h.Broadcast(bus.Event{Type: bus.EventPropertyUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Broadcast blocked on a client that never drains")
	}
}

func TestWSHubStopIdempotent(t *testing.T) {
	h := newTestWSHub()

	h.Stop()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Stop() panicked: %v", r)
		}
	}()
	h.Stop()
}

func TestWSHubStopClosesClients(t *testing.T) {
	h := newTestWSHub()

	client := &wsClient{send: make(chan []byte, 16)}
	if err := h.add(client); err != nil {
		t.Fatal(err)
	}

	h.Stop()

	if _, ok := <-client.send; ok {
		t.Error("client.send should be closed after hub stop")
	}
	if got := wsHubCount(h); got != 0 {
		t.Errorf("after stop: count = %d, want 0", got)
	}
}

func TestWSHubRejectsAddAfterStop(t *testing.T) {
	h := newTestWSHub()
	h.Stop()

	client := &wsClient{send: make(chan []byte, 16)}
	if err := h.add(client); err == nil {
		t.Fatal("add after Stop should fail")
	}
	h.Broadcast(bus.Event{Type: bus.EventGesture}) // must not panic
}

func TestWSHubRemoveUnknownClient(t *testing.T) {
	h := newTestWSHub()
	defer h.Stop()

	unknown := &wsClient{send: make(chan []byte, 16)}
	h.remove(unknown)

	select {
	case unknown.send <- []byte("test"):
	default:
		t.Error("queue should still be open for a client never added")
	}
}
