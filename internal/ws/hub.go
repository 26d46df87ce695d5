package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cantina-pos/api/internal/events"
)

// Message is the frame sent to kitchen screens.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomMessage routes a message to one cafeteria's screens.
type roomMessage struct {
	CafeteriaID int32
	Message     Message
}

// Hub maintains the set of active clients, grouped by cafeteria, and
// broadcasts reservation events to them.
type Hub struct {
	// Registered clients by cafeteria ID
	rooms map[int32]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage

	mu sync.RWMutex
}

var _ events.Publisher = (*Hub)(nil)

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int32]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.cafeteriaID] == nil {
				h.rooms[client.cafeteriaID] = make(map[*Client]bool)
			}
			h.rooms[client.cafeteriaID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			// Marshal once for the whole room
			data, err := json.Marshal(msg.Message)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[msg.CafeteriaID] {
				select {
				case client.send <- data:
				default:
					// Slow screen: drop it, it will reconnect
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client and closes its send channel. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.cafeteriaID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.cafeteriaID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}

// BroadcastToCafeteria sends a message to every screen of a cafeteria.
func (h *Hub) BroadcastToCafeteria(cafeteriaID int32, msg Message) {
	h.broadcast <- &roomMessage{CafeteriaID: cafeteriaID, Message: msg}
}

// Publish forwards reservation events to the cafeteria they belong to.
// Events without a cafeteria (balance top-ups) are not shown on screens.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	if ev.CafeteriaID == 0 {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &roomMessage{CafeteriaID: ev.CafeteriaID, Message: Message{Type: ev.Type, Payload: payload}}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected screens across all cafeterias.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}
