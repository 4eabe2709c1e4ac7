package client

import (
	"context"
	"fmt"
	"sync"

	"chatsync/internal/models"

	"github.com/sirupsen/logrus"
)

// Invalidator is the external cache-invalidation collaborator, keyed by room.
// Triggered whenever a confirmed message arrives for a room the user is not
// actively viewing.
type Invalidator interface {
	Invalidate(room string)
}

// ReadReceipts records that a room has been read, against the external
// persistence collaborator.
type ReadReceipts interface {
	MarkRead(ctx context.Context, room string) error
}

// UnreadTracker maintains per-room unread counters. The counter for the
// currently active room never increments; activating a room resets its
// counter to zero and issues a read receipt.
type UnreadTracker struct {
	mu       sync.Mutex
	active   string
	counts   map[string]int
	inval    Invalidator
	receipts ReadReceipts
	logger   *logrus.Logger
}

func NewUnreadTracker(inval Invalidator, receipts ReadReceipts, logger *logrus.Logger) *UnreadTracker {
	return &UnreadTracker{
		counts:   make(map[string]int),
		inval:    inval,
		receipts: receipts,
		logger:   logger,
	}
}

// SetActive marks room as the one the user is viewing, resets its counter
// and records the read receipt. An empty room means no room is active.
func (t *UnreadTracker) SetActive(ctx context.Context, room string) {
	t.mu.Lock()
	t.active = room
	if room != "" {
		delete(t.counts, room)
	}
	t.mu.Unlock()

	if room == "" {
		return
	}
	if err := t.receipts.MarkRead(ctx, room); err != nil {
		// The local counter is already reset; the server-side receipt catches
		// up on the next activation.
		t.logger.WithError(err).WithField("room", room).Warn("Read receipt failed")
	}
}

// NoteConfirmed reacts to a confirmed message arriving on the broadcast
// channel: rooms other than the active one gain exactly one unread per
// message, and their cached unread queries are invalidated.
func (t *UnreadTracker) NoteConfirmed(msg *models.Message) {
	room := msg.Room()
	if room == "" {
		return
	}

	t.mu.Lock()
	if room == t.active {
		t.mu.Unlock()
		return
	}
	t.counts[room]++
	t.mu.Unlock()

	t.inval.Invalidate(room)
}

// Count returns the unread counter for room.
func (t *UnreadTracker) Count(room string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[room]
}

// Active returns the currently active room.
func (t *UnreadTracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// FormatUnreadCount renders a counter for display: zero or negative values
// are hidden, 1 through 99 are exact, anything above shows as "99+".
func FormatUnreadCount(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return fmt.Sprintf("%d", n)
	}
}
