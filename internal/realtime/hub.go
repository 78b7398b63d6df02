// Package realtime implements the bidirectional channel both the result
// notifier and the duel engine deliver over: named topics, at-most-once
// delivery to currently connected members.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Handler processes one inbound event from a connection.
type Handler func(connID string, data json.RawMessage)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connID -> client
	rooms   map[string]map[string]*Client // topic -> connID -> client

	handlers      map[string]Handler
	onDisconnect  []func(connID string)
	handlersMu    sync.RWMutex
	disconnectsMu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for a named inbound event. Wire-up happens
// before the server starts accepting connections.
func (h *Hub) Handle(event string, handler Handler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[event] = handler
}

// OnDisconnect registers a hook invoked after a connection goes away.
func (h *Hub) OnDisconnect(hook func(connID string)) {
	h.disconnectsMu.Lock()
	defer h.disconnectsMu.Unlock()
	h.onDisconnect = append(h.onDisconnect, hook)
}

func (h *Hub) dispatch(c *Client, event Event) {
	h.handlersMu.RLock()
	handler, ok := h.handlers[event.Name]
	h.handlersMu.RUnlock()
	if !ok {
		log.Printf("WARN: No handler for event %q from connection %s", event.Name, c.ID)
		return
	}
	handler(c.ID, event.Data)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	log.Printf("Connection %s established", c.ID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for topic, members := range h.rooms {
		if _, ok := members[c.ID]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(h.rooms, topic)
			}
		}
	}
	h.mu.Unlock()
	c.closeSend()

	log.Printf("Connection %s closed", c.ID)
	h.disconnectsMu.RLock()
	hooks := h.onDisconnect
	h.disconnectsMu.RUnlock()
	for _, hook := range hooks {
		hook(c.ID)
	}
}

// Join subscribes a connection to a topic. Unknown connections are ignored.
func (h *Hub) Join(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[topic] == nil {
		h.rooms[topic] = make(map[string]*Client)
	}
	h.rooms[topic][connID] = client
}

func (h *Hub) Leave(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[topic]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, topic)
	}
}

// Send delivers one event to one connection, if it is still connected.
func (h *Hub) Send(connID, event string, data interface{}) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return
	}
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		client.enqueue(message)
	}
}

// Broadcast delivers one event to every current member of a topic.
func (h *Hub) Broadcast(topic, event string, data interface{}) {
	h.broadcast(topic, "", event, data)
}

// BroadcastExcept delivers to every member of a topic except one connection.
func (h *Hub) BroadcastExcept(topic, exceptConnID, event string, data interface{}) {
	h.broadcast(topic, exceptConnID, event, data)
}

func (h *Hub) broadcast(topic, exceptConnID, event string, data interface{}) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return
	}
	h.mu.RLock()
	members := h.rooms[topic]
	targets := make([]*Client, 0, len(members))
	for connID, client := range members {
		if connID == exceptConnID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(message)
	}
}
