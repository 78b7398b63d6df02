package realtime

import (
	"fmt"
	"sync"
	"testing"
)

func testClient(h *Hub, id string) *Client {
	return &Client{ID: id, hub: h, send: make(chan []byte, 4)}
}

func TestBroadcastWhileClientsDisconnect(t *testing.T) {
	h := NewHub()
	clients := make([]*Client, 0, 64)
	for i := 0; i < 64; i++ {
		c := testClient(h, fmt.Sprintf("conn-%d", i))
		h.register(c)
		h.Join(c.ID, "room")
		clients = append(clients, c)
	}

	// Broadcasts run on notifier and timer goroutines while readPump
	// teardown unregisters clients; neither side may panic.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Broadcast("room", "tick", map[string]int{"n": i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Send(clients[i%len(clients)].ID, "direct", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			h.unregister(c)
		}
	}()
	wg.Wait()
}

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	h := NewHub()
	c := testClient(h, "conn-1")
	h.register(c)
	h.unregister(c)

	c.enqueue([]byte("late")) // must not panic on the closed channel
	h.Send("conn-1", "late", nil)
}

func TestUnregisterFiresDisconnectHooksOnce(t *testing.T) {
	h := NewHub()
	var gone []string
	h.OnDisconnect(func(connID string) { gone = append(gone, connID) })

	c := testClient(h, "conn-1")
	h.register(c)
	h.Join(c.ID, "room")
	h.unregister(c)
	h.unregister(c) // duplicate teardown from both pumps

	if len(gone) != 1 || gone[0] != "conn-1" {
		t.Fatalf("expected one disconnect hook call for conn-1, got %v", gone)
	}
	h.Broadcast("room", "tick", nil) // room must be empty, not stale
}
