package models

import "time"

// EventType identifies the kind of a chat debug event. The set is closed:
// events with an unrecognized type are rejected by the debug store rather
// than recorded verbatim.
type EventType string

const (
	EventSocketConnected    EventType = "socket_connected"
	EventSocketDisconnected EventType = "socket_disconnected"
	EventRoomJoined         EventType = "room_joined"
	EventRoomLeft           EventType = "room_left"
	EventMessageSendAttempt EventType = "message_send_attempt"
	EventMessagePersisted   EventType = "message_persisted"
	EventMessageBroadcast   EventType = "message_broadcast"
	EventError              EventType = "error"
)

var knownEventTypes = map[EventType]struct{}{
	EventSocketConnected:    {},
	EventSocketDisconnected: {},
	EventRoomJoined:         {},
	EventRoomLeft:           {},
	EventMessageSendAttempt: {},
	EventMessagePersisted:   {},
	EventMessageBroadcast:   {},
	EventError:              {},
}

// Valid reports whether t is one of the recognized event kinds.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// ChatDebugEvent is one observability record of a chat lifecycle occurrence.
// It deliberately has no field for message content: bodies must never appear
// in the debug buffer, regardless of event type.
type ChatDebugEvent struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"eventType"`
	SocketID  string    `json:"socketId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
	Room      string    `json:"roomName,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
}
