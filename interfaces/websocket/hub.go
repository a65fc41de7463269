package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"clipstream-backend/application/ports"
)

// Hub is the in-process presence registry. It tracks every live connection
// per user and fans frames out to all of a user's connections. Registration
// and unregistration flow through channels so the connection map has a single
// writer loop; reads take the RWMutex.
type Hub struct {
	connections map[string]map[*Client]bool // userID -> set of clients
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *frame

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	metrics *HubMetrics
}

// HubMetrics tracks connection and delivery counters
type HubMetrics struct {
	ActiveConnections int64
	FramesSent        int64
	FramesFailed      int64
	mu                sync.RWMutex
}

// frame is the envelope pushed to clients
type frame struct {
	UserID    string          `json:"-"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a hub; call Run to start its event loop
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[string]map[*Client]bool),
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *frame, 1000),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		metrics:     &HubMetrics{},
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case f := <-h.broadcast:
			h.deliverToUser(f)

		case <-ticker.C:
			h.healthCheck()
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// Push delivers a payload to every live connection the user holds.
// It implements ports.Pusher; an offline user is an error so callers can
// distinguish "nobody listening" from a transport failure.
func (h *Hub) Push(_ context.Context, userID string, event ports.RealtimeEvent, payload interface{}) error {
	if h.ConnectionCount(userID) == 0 {
		return fmt.Errorf("no active connections for user %s", userID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	f := &frame{
		UserID:    userID,
		Event:     string(event),
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- f:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("broadcast channel full, frame dropped")
	}
}

// IsOnline implements ports.Presence
func (h *Hub) IsOnline(userID string) bool {
	return h.ConnectionCount(userID) > 0
}

// ConnectionCount returns the number of live connections for a user
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[client.userID] == nil {
		h.connections[client.userID] = make(map[*Client]bool)
	}
	h.connections[client.userID][client] = true

	h.metrics.mu.Lock()
	h.metrics.ActiveConnections++
	h.metrics.mu.Unlock()

	h.logger.Info("client registered",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.id),
		zap.Int("user_connections", len(h.connections[client.userID])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.shutdown()
	if len(clients) == 0 {
		delete(h.connections, client.userID)
	}

	h.metrics.mu.Lock()
	h.metrics.ActiveConnections--
	h.metrics.mu.Unlock()

	h.logger.Info("client unregistered",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.id),
		zap.Int("remaining_connections", len(clients)),
	)
}

func (h *Hub) deliverToUser(f *frame) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.connections[f.UserID]))
	for client := range h.connections[f.UserID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("failed to marshal frame",
			zap.String("event", f.Event),
			zap.Error(err),
		)
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
			h.metrics.mu.Lock()
			h.metrics.FramesSent++
			h.metrics.mu.Unlock()
		default:
			// Send buffer full: the client is too slow to keep, drop it.
			h.metrics.mu.Lock()
			h.metrics.FramesFailed++
			h.metrics.mu.Unlock()

			h.logger.Warn("closing slow client",
				zap.String("user_id", client.userID),
				zap.String("connection_id", client.id),
			)
			go func(c *Client) {
				h.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

func (h *Hub) healthCheck() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for userID, clients := range h.connections {
		total += len(clients)
		for client := range clients {
			select {
			case client.send <- []byte(`{"event":"ping"}`):
			default:
				h.logger.Warn("failed to ping client",
					zap.String("user_id", userID),
					zap.String("connection_id", client.id),
				)
			}
		}
	}

	h.logger.Debug("health check performed",
		zap.Int("total_connections", total),
		zap.Int("total_users", len(h.connections)),
	)
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for client := range clients {
			client.shutdown()
			client.conn.Close()
		}
		delete(h.connections, userID)
	}
}

// GetMetrics returns a snapshot of the hub counters
func (h *Hub) GetMetrics() HubMetrics {
	h.metrics.mu.RLock()
	defer h.metrics.mu.RUnlock()
	return HubMetrics{
		ActiveConnections: h.metrics.ActiveConnections,
		FramesSent:        h.metrics.FramesSent,
		FramesFailed:      h.metrics.FramesFailed,
	}
}
