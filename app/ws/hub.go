package ws

import (
	"sync"
	"time"

	"downpour/app/logger"
)

// Message is one event pushed to connected UI clients.
type Message struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans job, queue and network events out to every connected client.
// It satisfies the services' event publisher interface.
type Hub struct {
	logger *logger.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub; call Run in a goroutine before publishing.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:     log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debugf("websocket client connected, %d total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.logger.Debugf("websocket client disconnected, %d total", len(h.clients))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it rather than block the hub
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish broadcasts an event to all clients. Never blocks; when the
// broadcast buffer is full the event is dropped.
func (h *Hub) Publish(event string, payload any) {
	msg := Message{Event: event, Payload: payload, Timestamp: time.Now()}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warnf("websocket broadcast buffer full, dropping %s", event)
	}
}

// RegisterClient attaches a client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient detaches a client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
