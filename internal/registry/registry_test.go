package registry

import (
	"context"
	"testing"

	"chatsync/internal/chatdebug"
	"chatsync/internal/errors"
	"chatsync/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, userID, tenantID, room string) error {
	args := m.Called(ctx, userID, tenantID, room)
	return args.Error(0)
}

type fakeSender struct {
	sent   []interface{}
	failed bool
}

func (s *fakeSender) Send(ctx context.Context, v interface{}) error {
	if s.failed {
		return assert.AnError
	}
	s.sent = append(s.sent, v)
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *mockAuthorizer, *chatdebug.Store) {
	t.Helper()
	auth := &mockAuthorizer{}
	debug := chatdebug.NewStore(true)
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return New(auth, debug, logger), auth, debug
}

func eventTypes(debug *chatdebug.Store) []models.EventType {
	events := debug.Events(0)
	types := make([]models.EventType, len(events))
	for i, evt := range events {
		types[i] = evt.Type
	}
	return types
}

func TestRegistry_RegisterEmitsConnectEvent(t *testing.T) {
	reg, _, debug := newTestRegistry(t)

	socketID := reg.Register(&fakeSender{}, "u1", "t1")

	require.NotEmpty(t, socketID)
	assert.Equal(t, 1, reg.Len())

	events := debug.Events(1)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSocketConnected, events[0].Type)
	assert.Equal(t, socketID, events[0].SocketID)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, "t1", events[0].TenantID)
}

func TestRegistry_JoinRoomAuthorized(t *testing.T) {
	reg, auth, debug := newTestRegistry(t)
	socketID := reg.Register(&fakeSender{}, "u1", "t1")

	auth.On("Authorize", mock.Anything, "u1", "t1", "channel:c1").Return(nil).Once()

	err := reg.JoinRoom(context.Background(), socketID, "channel:c1")
	require.NoError(t, err)

	events := debug.Events(1)
	assert.Equal(t, models.EventRoomJoined, events[0].Type)
	assert.Equal(t, "channel:c1", events[0].Room)
	auth.AssertExpectations(t)
}

func TestRegistry_JoinRoomDenied(t *testing.T) {
	reg, auth, debug := newTestRegistry(t)
	socketID := reg.Register(&fakeSender{}, "u1", "t1")

	auth.On("Authorize", mock.Anything, "u1", "t1", "channel:secret").Return(assert.AnError).Once()

	err := reg.JoinRoom(context.Background(), socketID, "channel:secret")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthorization, errors.GetCode(err))

	events := debug.Events(1)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Equal(t, string(errors.ErrCodeAuthorization), events[0].ErrorCode)

	// The denied connection must not receive broadcasts for the room.
	delivered := reg.Broadcast(context.Background(), "channel:secret", &models.Message{ID: "m1"})
	assert.Equal(t, 0, delivered)
}

func TestRegistry_JoinRoomUnknownSocket(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	err := reg.JoinRoom(context.Background(), "missing", "channel:c1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestRegistry_UnregisterLeavesAllRooms(t *testing.T) {
	reg, auth, debug := newTestRegistry(t)
	socketID := reg.Register(&fakeSender{}, "u1", "t1")

	auth.On("Authorize", mock.Anything, "u1", "t1", mock.Anything).Return(nil)
	require.NoError(t, reg.JoinRoom(context.Background(), socketID, "channel:c1"))
	require.NoError(t, reg.JoinRoom(context.Background(), socketID, "dm:t9"))

	reg.Unregister(socketID)

	assert.Equal(t, 0, reg.Len())

	types := eventTypes(debug)
	// Most recent first: disconnect, then one room_left per joined room.
	assert.Equal(t, models.EventSocketDisconnected, types[0])
	assert.Equal(t, models.EventRoomLeft, types[1])
	assert.Equal(t, models.EventRoomLeft, types[2])

	assert.Equal(t, 0, debug.Metrics().ActiveSockets)
}

func TestRegistry_BroadcastReachesRoomMembersIncludingSender(t *testing.T) {
	reg, auth, _ := newTestRegistry(t)
	auth.On("Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	sender := &fakeSender{}
	other := &fakeSender{}
	outsider := &fakeSender{}

	senderID := reg.Register(sender, "u1", "t1")
	otherID := reg.Register(other, "u2", "t1")
	outsiderID := reg.Register(outsider, "u3", "t1")

	ctx := context.Background()
	require.NoError(t, reg.JoinRoom(ctx, senderID, "channel:c1"))
	require.NoError(t, reg.JoinRoom(ctx, otherID, "channel:c1"))
	require.NoError(t, reg.JoinRoom(ctx, outsiderID, "channel:c2"))

	msg := &models.Message{ID: "m1", Body: "hello"}
	delivered := reg.Broadcast(ctx, "channel:c1", msg)

	assert.Equal(t, 2, delivered)
	assert.Len(t, sender.sent, 1)
	assert.Len(t, other.sent, 1)
	assert.Empty(t, outsider.sent)
}

func TestRegistry_BroadcastSkipsFailedConnection(t *testing.T) {
	reg, auth, debug := newTestRegistry(t)
	auth.On("Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	healthy := &fakeSender{}
	broken := &fakeSender{failed: true}

	healthyID := reg.Register(healthy, "u1", "t1")
	brokenID := reg.Register(broken, "u2", "t1")

	ctx := context.Background()
	require.NoError(t, reg.JoinRoom(ctx, healthyID, "channel:c1"))
	require.NoError(t, reg.JoinRoom(ctx, brokenID, "channel:c1"))

	delivered := reg.Broadcast(ctx, "channel:c1", &models.Message{ID: "m1"})

	// The failed delivery does not affect the healthy connection.
	assert.Equal(t, 1, delivered)
	assert.Len(t, healthy.sent, 1)

	events := debug.Events(1)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Equal(t, string(errors.ErrCodeDeliveryFailed), events[0].ErrorCode)
	assert.Equal(t, brokenID, events[0].SocketID)
}

func TestRegistry_LeaveRoomStopsDelivery(t *testing.T) {
	reg, auth, _ := newTestRegistry(t)
	auth.On("Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	sender := &fakeSender{}
	socketID := reg.Register(sender, "u1", "t1")

	ctx := context.Background()
	require.NoError(t, reg.JoinRoom(ctx, socketID, "channel:c1"))
	require.NoError(t, reg.LeaveRoom(socketID, "channel:c1"))

	delivered := reg.Broadcast(ctx, "channel:c1", &models.Message{ID: "m1"})
	assert.Equal(t, 0, delivered)
	assert.Empty(t, sender.sent)
}
