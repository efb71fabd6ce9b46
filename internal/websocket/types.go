package websocket

import (
	"time"

	"github.com/coder/websocket"
)

// Message types understood by the live reload client.
const (
	MessagePageUpdated = "page_updated"
	MessagePageRemoved = "page_removed"
	MessageFullReload  = "full_reload"
)

// Client represents a connected browser.
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	remoteAddr  string
}

// UpdateMessage represents a message sent to the browser.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OriginValidator decides which cross-origin pages may connect.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}
