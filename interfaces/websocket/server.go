package websocket

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"clipstream-backend/pkg/auth"
)

// maxConnectionsPerUser caps how many concurrent connections one account may hold
const maxConnectionsPerUser = 10

// Server upgrades authenticated HTTP requests into hub-managed connections
type Server struct {
	hub       *Hub
	chat      MessageSender
	upgrader  websocket.Upgrader
	validator *auth.JWTValidator
	logger    *zap.Logger
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns the default upgrade configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: restrict to the web client origins once they are fixed
			return true
		},
	}
}

// NewServer creates a WebSocket server
func NewServer(hub *Hub, chat MessageSender, validator *auth.JWTValidator, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		hub:  hub,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		validator: validator,
		logger:    logger,
	}
}

// HandleWebSocket authenticates and upgrades the request
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticateRequest(r)
	if err != nil {
		s.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr),
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if s.hub.ConnectionCount(userID) >= maxConnectionsPerUser {
		s.logger.Warn("connection limit exceeded",
			zap.String("user_id", userID),
		)
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(userID, s.hub, conn, s.chat, s.logger)
	client.Start()

	s.logger.Info("websocket connection established",
		zap.String("user_id", userID),
		zap.String("connection_id", client.GetID()),
	)
}

// authenticateRequest resolves the caller identity from query, header, or cookie
func (s *Server) authenticateRequest(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		if cookie, err := r.Cookie("auth_token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return "", errors.New("no authentication token provided")
	}

	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// GetHub returns the hub behind this server
func (s *Server) GetHub() *Hub {
	return s.hub
}
