package registry

import (
	"context"
	"sync"

	"chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/internal/privacy"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sender is the transport half of a connection. The registry is
// transport-agnostic; the ws package adapts WebSocket connections to it.
type Sender interface {
	Send(ctx context.Context, v interface{}) error
}

// Authorizer decides whether a user may join a room within a tenant. Room
// membership checks are delegated to this external collaborator.
type Authorizer interface {
	Authorize(ctx context.Context, userID, tenantID, room string) error
}

// EventSink receives chat lifecycle debug events.
type EventSink interface {
	LogEvent(evt models.ChatDebugEvent)
}

// Connection tracks one live transport connection and its joined rooms.
// Mutation goes through the Registry; reads are safe copies.
type Connection struct {
	socketID string
	userID   string
	tenantID string
	sender   Sender
	rooms    map[string]struct{}
}

func (c *Connection) SocketID() string { return c.socketID }
func (c *Connection) UserID() string   { return c.userID }
func (c *Connection) TenantID() string { return c.tenantID }

// Rooms returns a copy of the rooms the connection has joined.
func (c *Connection) Rooms() []string {
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// Registry maintains the live mapping of connection to user, tenant and
// joined rooms. Room membership drives broadcast fan-out targeting.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	auth   Authorizer
	debug  EventSink
	logger *logrus.Logger
}

func New(auth Authorizer, debug EventSink, logger *logrus.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		auth:   auth,
		debug:  debug,
		logger: logger,
	}
}

// Register records a new connection and returns its socket ID.
func (r *Registry) Register(sender Sender, userID, tenantID string) string {
	conn := &Connection{
		socketID: uuid.NewString(),
		userID:   userID,
		tenantID: tenantID,
		sender:   sender,
		rooms:    make(map[string]struct{}),
	}

	r.mu.Lock()
	r.conns[conn.socketID] = conn
	r.mu.Unlock()

	r.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventSocketConnected,
		SocketID: conn.socketID,
		UserID:   userID,
		TenantID: tenantID,
	})

	r.logger.WithFields(logrus.Fields{
		"socket_id": conn.socketID,
		"user_id":   privacy.MaskUserID(userID),
	}).Debug("Connection registered")

	return conn.socketID
}

// JoinRoom subscribes the connection to a room after the authorization check.
func (r *Registry) JoinRoom(ctx context.Context, socketID, room string) error {
	r.mu.RLock()
	conn, ok := r.conns[socketID]
	r.mu.RUnlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown socket").WithContext("socket_id", socketID)
	}

	if err := r.auth.Authorize(ctx, conn.userID, conn.tenantID, room); err != nil {
		authErr := errors.NewAuthorizationError(conn.userID, room, err)
		r.debug.LogEvent(models.ChatDebugEvent{
			Type:      models.EventError,
			SocketID:  socketID,
			UserID:    conn.userID,
			TenantID:  conn.tenantID,
			Room:      room,
			ErrorCode: string(errors.ErrCodeAuthorization),
		})
		return authErr
	}

	r.mu.Lock()
	conn.rooms[room] = struct{}{}
	r.mu.Unlock()

	r.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventRoomJoined,
		SocketID: socketID,
		UserID:   conn.userID,
		TenantID: conn.tenantID,
		Room:     room,
	})
	return nil
}

// LeaveRoom unsubscribes the connection from a room.
func (r *Registry) LeaveRoom(socketID, room string) error {
	r.mu.Lock()
	conn, ok := r.conns[socketID]
	if ok {
		delete(conn.rooms, room)
	}
	r.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown socket").WithContext("socket_id", socketID)
	}

	r.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventRoomLeft,
		SocketID: socketID,
		UserID:   conn.userID,
		TenantID: conn.tenantID,
		Room:     room,
	})
	return nil
}

// Unregister removes a connection, leaving all of its joined rooms first.
func (r *Registry) Unregister(socketID string) {
	r.mu.Lock()
	conn, ok := r.conns[socketID]
	if ok {
		delete(r.conns, socketID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	for room := range conn.rooms {
		r.debug.LogEvent(models.ChatDebugEvent{
			Type:     models.EventRoomLeft,
			SocketID: socketID,
			UserID:   conn.userID,
			TenantID: conn.tenantID,
			Room:     room,
		})
	}

	r.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventSocketDisconnected,
		SocketID: socketID,
		UserID:   conn.userID,
		TenantID: conn.tenantID,
	})
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast delivers msg to every connection joined to room, including the
// sender's own connections. A failed delivery to one connection is logged and
// recorded as a debug event; it never affects the others and is not retried,
// since the live connection list is the source of truth going forward.
// Returns the number of successful deliveries.
func (r *Registry) Broadcast(ctx context.Context, room string, msg *models.Message) int {
	r.mu.RLock()
	targets := make([]*Connection, 0)
	for _, conn := range r.conns {
		if _, joined := conn.rooms[room]; joined {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.sender.Send(ctx, msg); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"socket_id": conn.socketID,
				"room":      room,
			}).Warn("Broadcast delivery failed")
			r.debug.LogEvent(models.ChatDebugEvent{
				Type:      models.EventError,
				SocketID:  conn.socketID,
				UserID:    conn.userID,
				TenantID:  conn.tenantID,
				Room:      room,
				ErrorCode: string(errors.ErrCodeDeliveryFailed),
			})
			continue
		}
		delivered++
	}
	return delivered
}
