package client

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/models"
)

// Entry is one row of the displayed message list: either a server-confirmed
// message or a client-side pending placeholder.
type Entry struct {
	models.Message
	TempID string
	Status models.PendingStatus

	// seq is the submission order of pending entries; the matching rule picks
	// the earliest-submitted unmatched candidate deterministically.
	seq uint64
}

// Pending reports whether the entry is an optimistic placeholder still
// awaiting confirmation.
func (e *Entry) Pending() bool { return e.Status == models.PendingStatusPending }

// Failed reports whether the entry's send errored. Failed entries stay
// visible for retry but are permanently excluded from matching.
func (e *Entry) Failed() bool { return e.Status == models.PendingStatusFailed }

// Confirmed reports whether the entry carries a server-assigned id.
func (e *Entry) Confirmed() bool { return e.Status == "" }

// sortID is the identity used for ordering: the server id once confirmed,
// the temp id before that.
func (e *Entry) sortID() string {
	if e.Confirmed() {
		return e.ID
	}
	return e.TempID
}

// RoomView maintains the ordered, deduplicated message list for one room
// across three event sources: optimistic local inserts, send-call
// acknowledgments and broadcast receipts. The three arrive as independent
// callbacks in any relative order; every operation here is idempotent under
// re-delivery, so the settled list does not depend on arrival order.
type RoomView struct {
	mu      sync.Mutex
	room    string
	entries []*Entry
	nextSeq uint64
	closed  bool
	clock   func() time.Time
	window  time.Duration
}

func NewRoomView(room string) *RoomView {
	return NewRoomViewWithClock(room, time.Now)
}

func NewRoomViewWithClock(room string, clock func() time.Time) *RoomView {
	return &RoomView{
		room:   room,
		clock:  clock,
		window: constants.ReconcileWindow,
	}
}

func (v *RoomView) Room() string { return v.room }

// AppendPending synthesizes an optimistic placeholder for the send request
// and inserts it into the list immediately. Two calls in the same millisecond
// get distinct temp ids.
func (v *RoomView) AppendPending(req models.SendMessageRequest) *Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}

	now := v.clock()
	v.nextSeq++
	entry := &Entry{
		Message: models.Message{
			TenantID:     req.TenantID,
			ChannelID:    req.ChannelID,
			DMThreadID:   req.DMThreadID,
			AuthorUserID: req.AuthorUserID,
			Body:         req.Body,
			CreatedAt:    now,
		},
		TempID: newTempID(now),
		Status: models.PendingStatusPending,
		seq:    v.nextSeq,
	}

	v.entries = append(v.entries, entry)
	v.sortLocked()
	return entry
}

// ApplyConfirmed reconciles a server-confirmed message into the list,
// whether it arrived via the send acknowledgment or via broadcast:
//
//   - a pending entry with exactly equal body whose submit time is within
//     the reconcile window is replaced in place, one-shot (the
//     earliest-submitted candidate when several qualify);
//   - otherwise the message is inserted fresh in sorted position, unless its
//     id is already present, in which case the duplicate is discarded.
//
// Returns false when the message was discarded (duplicate delivery or closed
// room).
func (v *RoomView) ApplyConfirmed(msg models.Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}

	for _, entry := range v.entries {
		if entry.Confirmed() && entry.ID == msg.ID {
			return false
		}
	}

	if match := v.matchLocked(msg); match != nil {
		match.Message = msg
		match.TempID = ""
		match.Status = ""
		v.sortLocked()
		return true
	}

	v.entries = append(v.entries, &Entry{Message: msg})
	v.sortLocked()
	return true
}

// matchLocked finds the earliest-submitted unmatched pending entry whose
// body equals the confirmed message's and whose submit time is within the
// reconcile window. Failed entries never match.
func (v *RoomView) matchLocked(msg models.Message) *Entry {
	var best *Entry
	for _, entry := range v.entries {
		if !entry.Pending() {
			continue
		}
		if entry.Body != msg.Body {
			continue
		}
		delta := msg.CreatedAt.Sub(entry.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta >= v.window {
			continue
		}
		if best == nil || entry.seq < best.seq {
			best = entry
		}
	}
	return best
}

// MarkFailed transitions the pending entry identified by its temp id to the
// failed state. Failed entries stay in the list so the user can retry or
// discard them, and no longer participate in matching.
func (v *RoomView) MarkFailed(tempID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, entry := range v.entries {
		if entry.Pending() && entry.TempID == tempID {
			entry.Status = models.PendingStatusFailed
			return true
		}
	}
	return false
}

// Discard removes a failed entry from the list.
func (v *RoomView) Discard(tempID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, entry := range v.entries {
		if entry.Failed() && entry.TempID == tempID {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Retry discards a failed entry and performs a fresh optimistic insert of its
// body under a new temp id.
func (v *RoomView) Retry(tempID string) (*Entry, bool) {
	v.mu.Lock()
	var failed *Entry
	for i, entry := range v.entries {
		if entry.Failed() && entry.TempID == tempID {
			failed = entry
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			break
		}
	}
	v.mu.Unlock()

	if failed == nil {
		return nil, false
	}
	entry := v.AppendPending(models.SendMessageRequest{
		TenantID:     failed.TenantID,
		ChannelID:    failed.ChannelID,
		DMThreadID:   failed.DMThreadID,
		AuthorUserID: failed.AuthorUserID,
		Body:         failed.Body,
	})
	if entry == nil {
		return nil, false
	}
	return entry, true
}

// Messages returns the displayed list in (createdAt, id) order. The slice is
// a snapshot; entries are copies.
func (v *RoomView) Messages() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Entry, len(v.entries))
	for i, entry := range v.entries {
		out[i] = *entry
	}
	return out
}

// Close discards all entries, including unresolved pendings, and drops any
// confirmed message that arrives afterwards. Closing and reopening a room
// repeatedly holds no memory: a closed view is empty.
func (v *RoomView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.entries = nil
}

// Reopen makes the view accept messages again, starting from an empty list.
// Messages that arrived while closed are not replayed; the caller refetches
// room history through the usual query path.
func (v *RoomView) Reopen() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = false
}

// Closed reports whether the room view has been closed.
func (v *RoomView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *RoomView) sortLocked() {
	sort.SliceStable(v.entries, func(i, j int) bool {
		a, b := v.entries[i], v.entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.sortID() < b.sortID()
	})
}

// newTempID builds a provisional client-side id. The random suffix keeps two
// sends within the same millisecond from colliding.
func newTempID(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("temp-%d-%d", now.UnixMilli(), now.UnixNano()%1e6)
	}
	return fmt.Sprintf("temp-%d-%s", now.UnixMilli(), hex.EncodeToString(suffix))
}
