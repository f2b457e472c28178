package models

import "time"

// HistoryEventType identifies what happened to a principal's history.
type HistoryEventType string

const (
	EventRecordCreated HistoryEventType = "record_created"
	EventRecordDeleted HistoryEventType = "record_deleted"
)

// HistoryEvent is a change notification for one principal's history
// partition. Delivery is at-least-once; consumers re-fetch the full list
// rather than applying the event incrementally.
type HistoryEvent struct {
	Type        HistoryEventType `json:"type"`
	PrincipalID string           `json:"principal_id"`
	RecordID    string           `json:"record_id"`
	Timestamp   time.Time        `json:"timestamp"`
}

// BroadcastMessage is the envelope pushed to websocket clients.
type BroadcastMessage struct {
	Type      string       `json:"type"`
	Event     HistoryEvent `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
	LastEventAt      string `json:"last_event_at,omitempty"`
}
