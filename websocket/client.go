package websocket

import (
	"encoding/json"
	"time"

	"github.com/apex/log"
	gorilla "github.com/gorilla/websocket"

	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/pubsub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket connection listening to a single principal's
// history partition.
type Client struct {
	hub          *Hub
	conn         *gorilla.Conn
	principalID  string
	send         chan []byte
	subscription *pubsub.Subscription
}

// NewClient creates a client for a connection owned by the given principal.
func NewClient(hub *Hub, conn *gorilla.Conn, principalID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		principalID: principalID,
		send:        make(chan []byte, 16),
	}
}

// forwardEvents turns broker events into websocket frames. It is the sole
// writer and closer of the send channel: when the subscription is torn down
// it closes send, which in turn stops WritePump.
func (c *Client) forwardEvents() {
	defer close(c.send)
	for event := range c.subscription.C {
		message := models.BroadcastMessage{
			Type:      "history_changed",
			Event:     event,
			Timestamp: time.Now(),
		}
		data, err := json.Marshal(message)
		if err != nil {
			log.Errorf("Failed to marshal broadcast message: %v", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop the frame, the client re-fetches on
			// the next one anyway.
		}
	}
}

// ReadPump discards inbound frames and detects disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseAbnormalClosure) {
				log.Warnf("Unexpected websocket close: %v", err)
			}
			return
		}
	}
}

// WritePump sends queued frames and keepalive pings to the peer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gorilla.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
