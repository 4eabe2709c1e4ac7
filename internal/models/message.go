package models

import (
	"time"
)

// Message is a persisted chat message. ID and CreatedAt are assigned by the
// server and never change after the message has been stored.
type Message struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenantId" db:"tenant_id"`
	ChannelID    *string    `json:"channelId" db:"channel_id"`
	DMThreadID   *string    `json:"dmThreadId" db:"dm_thread_id"`
	AuthorUserID string     `json:"authorUserId" db:"author_user_id"`
	Body         string     `json:"body" db:"body"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	EditedAt     *time.Time `json:"editedAt" db:"edited_at"`
}

// Room returns the broadcast room the message belongs to. Exactly one of
// ChannelID and DMThreadID is set on a valid message.
func (m *Message) Room() string {
	if m.ChannelID != nil && *m.ChannelID != "" {
		return ChannelRoom(*m.ChannelID)
	}
	if m.DMThreadID != nil && *m.DMThreadID != "" {
		return DMRoom(*m.DMThreadID)
	}
	return ""
}

// Before reports whether m sorts ahead of other under the room ordering rule:
// ascending CreatedAt, ties broken by lexicographic comparison of IDs.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// ChannelRoom returns the room name for a channel.
func ChannelRoom(channelID string) string {
	return "channel:" + channelID
}

// DMRoom returns the room name for a direct-message thread.
func DMRoom(dmThreadID string) string {
	return "dm:" + dmThreadID
}

// SendMessageRequest is the payload of the send API. Exactly one of ChannelID
// and DMThreadID must be set.
type SendMessageRequest struct {
	TenantID     string  `json:"tenantId"`
	ChannelID    *string `json:"channelId,omitempty"`
	DMThreadID   *string `json:"dmThreadId,omitempty"`
	AuthorUserID string  `json:"authorUserId"`
	Body         string  `json:"body"`
}

// Room returns the broadcast room targeted by the request, or "" when the
// request is malformed.
func (r *SendMessageRequest) Room() string {
	hasChannel := r.ChannelID != nil && *r.ChannelID != ""
	hasThread := r.DMThreadID != nil && *r.DMThreadID != ""
	switch {
	case hasChannel && !hasThread:
		return ChannelRoom(*r.ChannelID)
	case hasThread && !hasChannel:
		return DMRoom(*r.DMThreadID)
	default:
		return ""
	}
}
