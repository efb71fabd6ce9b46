// Package websocket pushes live reload notifications to browsers viewing
// pages on the preview server.
//
// A single hub goroutine owns client registration and broadcasting. Every
// client has a buffered send queue drained by its own writer goroutine; a
// client whose queue is full is disconnected rather than slowing the hub.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
)

const (
	sendQueueSize = 64
	readTimeout   = 60 * time.Second
	writeTimeout  = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Manager handles WebSocket connections and broadcasting.
type Manager struct {
	clients      map[*Client]bool
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	originValidator OriginValidator
	logger          logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// NewManager creates a manager and starts its hub. A nil validator accepts
// same-host connections only.
func NewManager(originValidator OriginValidator, logger logging.Logger) *Manager {
	if originValidator == nil {
		originValidator = NewAllowList(nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		clients:         make(map[*Client]bool),
		broadcast:       make(chan []byte, 256),
		register:        make(chan *Client, 32),
		unregister:      make(chan *Client, 32),
		originValidator: originValidator,
		logger:          logger.WithComponent("websocket"),
		ctx:             ctx,
		cancel:          cancel,
	}
	go m.runHub()
	return m
}

// HandleWebSocket upgrades the request and registers the client.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if m.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" && !m.allowOrigin(origin, r.Host) {
		err := errors.ErrInvalidOrigin(origin)
		m.logger.Warn(r.Context(), err, "websocket connection rejected", "remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins were validated above.
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		m.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote_addr", r.RemoteAddr)
		return
	}

	client := &Client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		connectedAt: time.Now(),
		remoteAddr:  r.RemoteAddr,
	}

	select {
	case m.register <- client:
	case <-m.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go m.writeToClient(client)
	m.readFromClient(client)
}

func (m *Manager) allowOrigin(origin, host string) bool {
	for _, scheme := range []string{"http://", "https://"} {
		if origin == scheme+host {
			return true
		}
	}
	return m.originValidator.IsAllowedOrigin(origin)
}

func (m *Manager) runHub() {
	for {
		select {
		case client := <-m.register:
			m.clientsMutex.Lock()
			m.clients[client] = true
			count := len(m.clients)
			m.clientsMutex.Unlock()
			m.logger.Debug(m.ctx, "websocket client connected", "client", client.id, "clients", count)

		case client := <-m.unregister:
			m.removeClient(client)

		case message := <-m.broadcast:
			m.clientsMutex.RLock()
			var slow []*Client
			for client := range m.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			m.clientsMutex.RUnlock()
			for _, client := range slow {
				m.logger.Warn(m.ctx, nil, "disconnecting slow websocket client", "client", client.id)
				m.removeClient(client)
			}

		case <-m.ctx.Done():
			return
		}
	}
}

// removeClient runs on the hub goroutine only, so send is closed once.
func (m *Manager) removeClient(client *Client) {
	m.clientsMutex.Lock()
	_, exists := m.clients[client]
	if exists {
		delete(m.clients, client)
		close(client.send)
	}
	count := len(m.clients)
	m.clientsMutex.Unlock()

	if exists {
		m.logger.Debug(m.ctx, "websocket client disconnected", "client", client.id, "clients", count)
	}
}

func (m *Manager) readFromClient(client *Client) {
	defer func() {
		select {
		case m.unregister <- client:
		case <-m.ctx.Done():
		}
		_ = client.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		ctx, cancel := context.WithTimeout(m.ctx, readTimeout)
		_, _, err := client.conn.Read(ctx)
		cancel()
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && m.ctx.Err() == nil {
				m.logger.Debug(m.ctx, "websocket read ended", "client", client.id, "error", err.Error())
			}
			return
		}
		// Clients have nothing to say; reads only keep the connection alive.
	}
}

func (m *Manager) writeToClient(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			ctx, cancel := context.WithTimeout(m.ctx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-m.ctx.Done():
			return
		}
	}
}

// BroadcastMessage sends message to every connected client. Messages are
// dropped when the manager is shut down or its queue is full.
func (m *Manager) BroadcastMessage(message UpdateMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		m.logger.Error(m.ctx, err, "encoding broadcast message")
		return
	}

	select {
	case m.broadcast <- data:
	case <-m.ctx.Done():
	default:
		m.logger.Warn(m.ctx, nil, "broadcast queue full, dropping message", "type", message.Type)
	}
}

// PageUpdated tells viewers of page to reload.
func (m *Manager) PageUpdated(page string) {
	m.BroadcastMessage(UpdateMessage{Type: MessagePageUpdated, Target: page})
}

// PageRemoved tells viewers of page that it no longer exists.
func (m *Manager) PageRemoved(page string) {
	m.BroadcastMessage(UpdateMessage{Type: MessagePageRemoved, Target: page})
}

// FullReload tells every client to reload.
func (m *Manager) FullReload() {
	m.BroadcastMessage(UpdateMessage{Type: MessageFullReload})
}

// GetConnectedClients returns the number of connected clients.
func (m *Manager) GetConnectedClients() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

// ClientInfo describes a connected client.
type ClientInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Clients returns the connected clients, oldest first.
func (m *Manager) Clients() []ClientInfo {
	m.clientsMutex.RLock()
	infos := make([]ClientInfo, 0, len(m.clients))
	for client := range m.clients {
		infos = append(infos, ClientInfo{
			ID:          client.id,
			RemoteAddr:  client.remoteAddr,
			ConnectedAt: client.connectedAt,
		})
	}
	m.clientsMutex.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConnectedAt.Before(infos[j].ConnectedAt) })
	return infos
}

// Shutdown stops the hub and closes every connection.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.isShutdown.Store(true)
		m.cancel()

		m.clientsMutex.Lock()
		for client := range m.clients {
			_ = client.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
		m.clients = make(map[*Client]bool)
		m.clientsMutex.Unlock()

		m.logger.Info(ctx, "websocket manager shut down")
	})
	return nil
}

// IsShutdown reports whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.isShutdown.Load()
}
