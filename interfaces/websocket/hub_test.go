package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	"clipstream-backend/pkg/auth"
)

const testSecret = "test-secret"

type recordingSender struct {
	mu    sync.Mutex
	calls []sentCall
}

type sentCall struct {
	senderID   string
	receiverID string
	content    string
}

func (r *recordingSender) SendMessage(_ context.Context, senderID, receiverID, content, kind string) (*entities.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sentCall{senderID: senderID, receiverID: receiverID, content: content})

	sender, err := valueobjects.NewUserIDFromString(senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := valueobjects.NewUserIDFromString(receiverID)
	if err != nil {
		return nil, err
	}
	msgKind, err := entities.ParseMessageKind(kind)
	if err != nil {
		return nil, err
	}
	return entities.NewChatMessage(sender, receiver, content, msgKind)
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type wsFixture struct {
	hub    *Hub
	sender *recordingSender
	server *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	hub := NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	sender := &recordingSender{}
	server := NewServer(hub, sender, validator, nil, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(server.HandleWebSocket))
	t.Cleanup(ts.Close)

	return &wsFixture{hub: hub, sender: sender, server: ts}
}

func (f *wsFixture) dial(t *testing.T, userID string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + signToken(t, userID)
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads frames until one with the wanted event arrives
func readFrame(t *testing.T, conn *gorilla.Conn, event string) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f frame
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Event == event {
			return f
		}
	}
}

func TestHub_RegisterAndPresence(t *testing.T) {
	f := newWSFixture(t)
	userID := valueobjects.NewUserID().String()

	conn := f.dial(t, userID)
	readFrame(t, conn, "connected")

	assert.True(t, f.hub.IsOnline(userID))
	assert.Equal(t, 1, f.hub.ConnectionCount(userID))

	conn.Close()
	assert.Eventually(t, func() bool {
		return !f.hub.IsOnline(userID)
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	f := newWSFixture(t)
	userID := valueobjects.NewUserID().String()

	first := f.dial(t, userID)
	second := f.dial(t, userID)
	readFrame(t, first, "connected")
	readFrame(t, second, "connected")

	assert.Equal(t, 2, f.hub.ConnectionCount(userID))

	// A push reaches every connection the user holds.
	err := f.hub.Push(context.Background(), userID, ports.EventNotification, map[string]string{"text": "hi"})
	require.NoError(t, err)
	readFrame(t, first, "notification")
	readFrame(t, second, "notification")
}

func TestHub_PushToOfflineUser(t *testing.T) {
	f := newWSFixture(t)

	err := f.hub.Push(context.Background(), valueobjects.NewUserID().String(), ports.EventNewMessage, "payload")
	assert.Error(t, err)
}

func TestHub_FrameAfterUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	userID := valueobjects.NewUserID().String()
	client := NewClient(userID, hub, nil, nil, zap.NewNop())

	hub.register <- client
	require.Eventually(t, func() bool {
		return hub.ConnectionCount(userID) == 1
	}, 3*time.Second, 10*time.Millisecond)

	hub.unregister <- client
	require.Eventually(t, func() bool {
		return hub.ConnectionCount(userID) == 0
	}, 3*time.Second, 10*time.Millisecond)

	// The read pump can still be acking an inbound message while the hub
	// tears the connection down. The late frame is dropped, not a crash.
	require.NotPanics(t, func() {
		client.sendFrame("messageSent", map[string]string{"content": "late ack"})
		client.sendError("late error")
	})

	// Tearing down twice is a no-op.
	require.NotPanics(t, func() {
		client.shutdown()
		hub.unregister <- client
	})
	assert.Equal(t, 0, hub.ConnectionCount(userID))
}

func TestServer_RejectsUnauthenticated(t *testing.T) {
	f := newWSFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClient_InboundSendMessage(t *testing.T) {
	f := newWSFixture(t)
	senderID := valueobjects.NewUserID().String()
	receiverID := valueobjects.NewUserID().String()

	conn := f.dial(t, senderID)
	readFrame(t, conn, "connected")

	payload, err := json.Marshal(map[string]string{
		"receiverId": receiverID,
		"content":    "hello",
	})
	require.NoError(t, err)
	out, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"sendMessage"`),
		"data":  payload,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, out))

	ack := readFrame(t, conn, "messageSent")
	var msg entities.ChatMessage
	require.NoError(t, json.Unmarshal(ack.Data, &msg))
	assert.Equal(t, "hello", msg.Content)

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, senderID, f.sender.calls[0].senderID)
	assert.Equal(t, receiverID, f.sender.calls[0].receiverID)
}

func TestClient_InboundMalformedFrame(t *testing.T) {
	f := newWSFixture(t)
	userID := valueobjects.NewUserID().String()

	conn := f.dial(t, userID)
	readFrame(t, conn, "connected")

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("not json")))
	errFrame := readFrame(t, conn, "error")

	var payload map[string]string
	require.NoError(t, json.Unmarshal(errFrame.Data, &payload))
	assert.Equal(t, "malformed frame", payload["message"])
}
