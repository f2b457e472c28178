package websocket

import (
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/pubsub"
)

// Hub manages WebSocket connections and routes history change events from
// the broker to each connected client's principal-scoped subscription.
type Hub struct {
	broker *pubsub.Broker

	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	// Statistics
	connectedClients int
	lastEventAt      time.Time
}

// NewHub creates a new WebSocket hub
func NewHub(broker *pubsub.Broker) *Hub {
	return &Hub{
		broker:     broker,
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Subscribe before the client becomes visible in the stats so
			// no event published after registration can be missed.
			client.subscription = h.broker.Subscribe(client.principalID)
			go client.forwardEvents()

			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			metrics.ConnectedClients.Set(float64(h.connectedClients))
			log.Infof("Client connected for principal %s. Total clients: %d", client.principalID, h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// forwardEvents observes the closed subscription and
				// closes the send channel itself; closing it here would
				// race with its sends.
				client.subscription.Unsubscribe()
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			metrics.ConnectedClients.Set(float64(h.connectedClients))
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)
		}
	}
}

// NoteEvent records the time of the most recent history event for the
// health endpoint.
func (h *Hub) NoteEvent() {
	h.mutex.Lock()
	h.lastEventAt = time.Now()
	h.mutex.Unlock()
}

// GetStats returns the connected client count and the time of the last
// observed history event.
func (h *Hub) GetStats() (int, time.Time) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.lastEventAt
}
