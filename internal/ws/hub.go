package ws

import (
	"sync"
)

// Hub tracks the live feed sessions per thread. Delivery itself happens on each
// client's own feed subscription; the hub only keeps the registry, which the
// chat list uses to report active viewers per thread.
type Hub struct {
	clients    map[string]map[*Client]bool // threadID -> clients
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.threadID] == nil {
				h.clients[client.threadID] = make(map[*Client]bool)
			}
			h.clients[client.threadID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.threadID]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.clients, client.threadID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ActiveViewers reports how many feed sessions are open on the thread.
func (h *Hub) ActiveViewers(threadID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[threadID])
}
