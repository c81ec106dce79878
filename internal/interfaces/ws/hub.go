package ws

import (
	"sync"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// Frame is the wire shape of every real-time event delivered to a
// subscriber.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type envelope struct {
	tenantID string
	frame    *Frame
}

// Hub maintains the set of active subscribers and fans events out to
// the subscribers scoped to a tenant. It implements the usecases
// Broadcaster port.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	quit       chan struct{}
	log        waLog.Logger
}

func NewHub(log waLog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Run drives the hub loop until Stop is called.
func (h *Hub) Run() {
	h.log.Infof("WebSocket hub started")
	defer h.log.Infof("WebSocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.tenantID != "" {
				room := h.rooms[client.tenantID]
				if room == nil {
					room = make(map[*Client]bool)
					h.rooms[client.tenantID] = room
				}
				room[client] = true
			}
			h.mu.Unlock()
			if client.tenantID != "" {
				h.log.Infof("Client connected - %s", client.tenantID)
			} else {
				h.log.Infof("A client connected")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
			if client.tenantID != "" {
				h.log.Infof("Client disconnected - %s", client.tenantID)
			} else {
				h.log.Infof("A client disconnected")
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.tenantID] {
				select {
				case client.send <- msg.frame:
				default:
					// Slow subscriber, drop it
					h.drop(client)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			return
		}
	}
}

// drop must be called with the lock held.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.tenantID != "" {
		if room, ok := h.rooms[client.tenantID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.tenantID)
			}
		}
	}
	client.closeSend()
}

// Stop stops the hub loop.
func (h *Hub) Stop() {
	close(h.quit)
}

// Register adds a subscriber to the hub and its tenant room. A stopped
// hub accepts nobody; the call returns without registering.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a subscriber. Tenant sessions are untouched:
// other subscribers, or none, may still care about them.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Emit broadcasts an event to every subscriber in the tenant's room.
// Fire-and-forget; a full hub queue drops the event.
func (h *Hub) Emit(tenantID, event string, payload interface{}) {
	select {
	case h.broadcast <- envelope{tenantID: tenantID, frame: &Frame{Event: event, Data: payload}}:
	default:
		h.log.Warnf("Broadcast channel full, dropping %s for %s", event, tenantID)
	}
}

// RoomSize returns the number of subscribers scoped to a tenant.
func (h *Hub) RoomSize(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}
