package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"clipstream-backend/domain/core/entities"
	apperrors "clipstream-backend/pkg/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Send buffer size
	sendBufferSize = 256

	// Time allowed to process one inbound chat frame
	inboundTimeout = 15 * time.Second
)

// MessageSender handles inbound chat frames from a connection
type MessageSender interface {
	SendMessage(ctx context.Context, senderID, receiverID, content, kind string) (*entities.ChatMessage, error)
}

// Client is one live WebSocket connection. The send channel is never closed;
// shutdown is signalled through done so a late sendFrame cannot panic against
// a concurrent teardown.
type Client struct {
	id        string
	userID    string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	chat      MessageSender
	logger    *zap.Logger
}

// inboundFrame is the envelope clients send
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// sendMessagePayload is the data of a sendMessage frame
type sendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Kind       string `json:"kind,omitempty"`
}

// NewClient creates a client for an upgraded connection
func NewClient(userID string, hub *Hub, conn *websocket.Conn, chat MessageSender, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		chat:   chat,
		logger: logger.With(
			zap.String("user_id", userID),
			zap.String("connection_id", id),
		),
	}
}

// shutdown signals the pumps to stop. Safe to call more than once and from
// any goroutine.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Start registers with the hub and begins the read and write pumps
func (c *Client) Start() {
	c.hub.register <- c

	go c.writePump()
	go c.readPump()

	c.sendFrame("connected", map[string]string{
		"connectionId": c.id,
		"userId":       c.userID,
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleTextMessage(message)
		case websocket.BinaryMessage:
			c.logger.Warn("binary messages not supported")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write frame", zap.Error(err))
				return
			}

			// Drain whatever queued up behind this frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("failed to write queued frame", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleTextMessage(message []byte) {
	message = bytes.TrimSpace(message)

	var f inboundFrame
	if err := json.Unmarshal(message, &f); err != nil {
		c.sendError("malformed frame")
		return
	}

	switch f.Event {
	case "sendMessage":
		c.handleSendMessage(f.Data)
	case "pong":
		// Keepalive response, nothing to do.
	default:
		c.logger.Debug("unknown inbound event", zap.String("event", f.Event))
	}
}

// handleSendMessage persists the message and acks the sender. The hub pushes
// the frame to the receiver via the chat service's delivery path.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed sendMessage payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	msg, err := c.chat.SendMessage(ctx, c.userID, payload.ReceiverID, payload.Content, payload.Kind)
	if err != nil {
		c.logger.Warn("inbound message rejected", zap.Error(err))
		if appErr := apperrors.GetAppError(err); appErr != nil {
			c.sendError(appErr.Message)
		} else {
			c.sendError("failed to send message")
		}
		return
	}

	c.sendFrame("messageSent", msg)
}

func (c *Client) sendFrame(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal frame payload", zap.Error(err))
		return
	}
	out, err := json.Marshal(frame{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		c.logger.Error("failed to marshal frame", zap.Error(err))
		return
	}

	select {
	case <-c.done:
		c.logger.Debug("dropping frame, connection closed", zap.String("event", event))
		return
	default:
	}

	select {
	case c.send <- out:
	case <-c.done:
		c.logger.Debug("dropping frame, connection closed", zap.String("event", event))
	default:
		c.logger.Warn("dropping frame, send buffer full", zap.String("event", event))
	}
}

func (c *Client) sendError(message string) {
	c.sendFrame("error", map[string]string{"message": message})
}

// GetID returns the connection id
func (c *Client) GetID() string { return c.id }

// GetUserID returns the authenticated user id
func (c *Client) GetUserID() string { return c.userID }
