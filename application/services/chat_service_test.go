package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/infrastructure/persistence/memory"
	"clipstream-backend/infrastructure/persistence/repository"
	apperrors "clipstream-backend/pkg/errors"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed chan pushedFrame
}

type pushedFrame struct {
	userID  string
	event   ports.RealtimeEvent
	payload interface{}
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(chan pushedFrame, 8)}
}

func (p *fakePusher) Push(_ context.Context, userID string, event ports.RealtimeEvent, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed <- pushedFrame{userID: userID, event: event, payload: payload}
	return nil
}

type fakePresence struct {
	online map[string]bool
}

func (p *fakePresence) IsOnline(userID string) bool { return p.online[userID] }
func (p *fakePresence) ConnectionCount(userID string) int {
	if p.online[userID] {
		return 1
	}
	return 0
}

type chatFixture struct {
	service  *ChatService
	users    ports.UserRepository
	pusher   *fakePusher
	presence *fakePresence
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	store := memory.NewEntityStore()
	users := repository.NewUserRepository(store)
	messages := repository.NewMessageRepository(store)
	pusher := newFakePusher()
	presence := &fakePresence{online: make(map[string]bool)}
	service := NewChatService(messages, users, presence, pusher, nil, zap.NewNop())
	return &chatFixture{service: service, users: users, pusher: pusher, presence: presence}
}

func (f *chatFixture) createUser(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := entities.NewUser(username+"@example.com", username)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestSendMessage_Persists(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	msg, err := f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "hey", "")
	require.NoError(t, err)
	assert.Equal(t, entities.MessageKindText, msg.Kind)
	assert.False(t, msg.ID.IsZero())

	history, err := f.service.GetHistory(context.Background(), alice.ID.String(), bob.ID.String(), ports.Page{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hey", history[0].Content)
}

func TestSendMessage_ReceiverMissing(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")

	_, err := f.service.SendMessage(context.Background(), alice.ID.String(), "not-a-uuid", "hey", "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendMessage_Self(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")

	_, err := f.service.SendMessage(context.Background(), alice.ID.String(), alice.ID.String(), "hey", "")
	assert.True(t, apperrors.IsInvalidOperation(err))
}

func TestSendMessage_Validation(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "", "")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "hey", "carrier-pigeon")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSendMessage_PushesToOnlineReceiver(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	f.presence.online[bob.ID.String()] = true

	msg, err := f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "hey", "")
	require.NoError(t, err)

	select {
	case frame := <-f.pusher.pushed:
		assert.Equal(t, bob.ID.String(), frame.userID)
		assert.Equal(t, ports.EventNewMessage, frame.event)
		pushed, ok := frame.payload.(*entities.ChatMessage)
		require.True(t, ok)
		assert.True(t, pushed.ID.Equals(msg.ID))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a pushed frame")
	}
}

func TestSendMessage_OfflineReceiverSkipsPush(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "hey", "")
	require.NoError(t, err)

	select {
	case <-f.pusher.pushed:
		t.Fatal("did not expect a push for an offline receiver")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGetHistory_InterleavesBothDirections(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "one", "")
	require.NoError(t, err)
	_, err = f.service.SendMessage(context.Background(), bob.ID.String(), alice.ID.String(), "two", "")
	require.NoError(t, err)
	_, err = f.service.SendMessage(context.Background(), alice.ID.String(), bob.ID.String(), "three", "")
	require.NoError(t, err)

	// Both participants see the same conversation in the same order.
	for _, viewer := range []string{alice.ID.String(), bob.ID.String()} {
		history, err := f.service.GetHistory(context.Background(), viewer, otherOf(viewer, alice.ID.String(), bob.ID.String()), ports.Page{})
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "one", history[0].Content)
		assert.Equal(t, "two", history[1].Content)
		assert.Equal(t, "three", history[2].Content)
		assert.Less(t, history[0].Seq, history[1].Seq)
		assert.Less(t, history[1].Seq, history[2].Seq)
	}
}

func otherOf(viewer, a, b string) string {
	if viewer == a {
		return b
	}
	return a
}

func TestNotify_Pushes(t *testing.T) {
	f := newChatFixture(t)
	alice := f.createUser(t, "alice")

	require.NoError(t, f.service.Notify(context.Background(), alice.ID.String(), map[string]string{"text": "ping"}))

	select {
	case frame := <-f.pusher.pushed:
		assert.Equal(t, alice.ID.String(), frame.userID)
		assert.Equal(t, ports.EventNotification, frame.event)
	case <-time.After(time.Second):
		t.Fatal("expected a notification frame")
	}
}
