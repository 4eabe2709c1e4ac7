package chatdebug

import (
	"os"
	"sync"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/models"
)

// EnabledFromEnv reads the CHAT_DEBUG environment variable. The store is
// enabled only when the value is the literal string "true"; unset or any
// other value means disabled.
func EnabledFromEnv() bool {
	return os.Getenv("CHAT_DEBUG") == "true"
}

// SocketInfo is a point-in-time view of one active connection, derived from
// the event buffer.
type SocketInfo struct {
	SocketID   string `json:"socketId"`
	UserID     string `json:"userId"`
	TenantID   string `json:"tenantId"`
	RoomsCount int    `json:"roomsCount"`
}

// ErrorCount groups error events by code.
type ErrorCount struct {
	Code     string    `json:"code"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// Metrics is a snapshot derived by scanning the current event buffer.
type Metrics struct {
	ActiveSockets       int            `json:"activeSockets"`
	RoomCounts          map[string]int `json:"perRoom"`
	MessagesLast5Min    int            `json:"messagesLast5Minutes"`
	LastErrors          []ErrorCount   `json:"lastErrors"`
	BufferedEventsCount int            `json:"bufferedEvents"`
}

// Store is a bounded, append-only buffer of chat lifecycle events with
// derived metrics. It is purely advisory: logging must never fail a request,
// so LogEvent never returns an error and never panics. The store is owned by
// the process lifecycle and injected into its consumers; Reset exists for
// test isolation only.
type Store struct {
	mu       sync.RWMutex
	enabled  bool
	capacity int
	maxAge   time.Duration
	nextID   uint64
	events   []models.ChatDebugEvent
	clock    func() time.Time
}

// NewStore creates a store with default capacity and retention.
func NewStore(enabled bool) *Store {
	return NewStoreWithConfig(enabled, constants.DefaultDebugEventCapacity, constants.DefaultDebugEventMaxAge, time.Now)
}

// NewStoreWithConfig creates a store with explicit bounds. A non-positive
// capacity falls back to the default; a zero clock falls back to time.Now.
func NewStoreWithConfig(enabled bool, capacity int, maxAge time.Duration, clock func() time.Time) *Store {
	if capacity <= 0 {
		capacity = constants.DefaultDebugEventCapacity
	}
	if maxAge <= 0 {
		maxAge = constants.DefaultDebugEventMaxAge
	}
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		enabled:  enabled,
		capacity: capacity,
		maxAge:   maxAge,
		events:   make([]models.ChatDebugEvent, 0, capacity),
		clock:    clock,
	}
}

// Enabled reports whether the store records events.
func (s *Store) Enabled() bool {
	return s.enabled
}

// LogEvent appends an event to the buffer, assigning its ID and timestamp.
// No-op when the store is disabled. An event with an unrecognized type is
// recorded as an error event with code UNKNOWN_EVENT_TYPE instead of being
// accepted verbatim or dropped.
func (s *Store) LogEvent(evt models.ChatDebugEvent) {
	if !s.enabled {
		return
	}

	if !evt.Type.Valid() {
		evt = models.ChatDebugEvent{
			Type:      models.EventError,
			SocketID:  evt.SocketID,
			UserID:    evt.UserID,
			TenantID:  evt.TenantID,
			Room:      evt.Room,
			ErrorCode: "UNKNOWN_EVENT_TYPE",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	evt.ID = s.nextID
	evt.Timestamp = s.clock()

	s.events = append(s.events, evt)
	s.evictLocked()
}

// Events returns up to limit events, most recent first. A non-positive limit
// returns the whole buffer.
func (s *Store) Events(limit int) []models.ChatDebugEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]models.ChatDebugEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// Metrics derives a snapshot from the current buffer. Active socket counts
// reconcile connect/disconnect pairs per socket and never go negative.
// LastErrors is ordered by count descending, ties broken by most recent.
func (s *Store) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	connected := make(map[string]bool)
	roomCounts := make(map[string]int)
	errTally := make(map[string]*ErrorCount)
	recentMessages := 0

	for _, evt := range s.events {
		switch evt.Type {
		case models.EventSocketConnected:
			if evt.SocketID != "" {
				connected[evt.SocketID] = true
			}
		case models.EventSocketDisconnected:
			if evt.SocketID != "" {
				delete(connected, evt.SocketID)
			}
		case models.EventRoomJoined:
			if evt.Room != "" {
				roomCounts[evt.Room]++
			}
		case models.EventRoomLeft:
			if evt.Room != "" && roomCounts[evt.Room] > 0 {
				roomCounts[evt.Room]--
			}
		case models.EventMessagePersisted:
			if now.Sub(evt.Timestamp) <= constants.MessagesMetricWindow {
				recentMessages++
			}
		case models.EventError:
			code := evt.ErrorCode
			if code == "" {
				code = "UNKNOWN"
			}
			tally, ok := errTally[code]
			if !ok {
				tally = &ErrorCount{Code: code}
				errTally[code] = tally
			}
			tally.Count++
			if evt.Timestamp.After(tally.LastSeen) {
				tally.LastSeen = evt.Timestamp
			}
		}
	}

	lastErrors := make([]ErrorCount, 0, len(errTally))
	for _, tally := range errTally {
		lastErrors = append(lastErrors, *tally)
	}
	sortErrorCounts(lastErrors)

	return Metrics{
		ActiveSockets:       len(connected),
		RoomCounts:          roomCounts,
		MessagesLast5Min:    recentMessages,
		LastErrors:          lastErrors,
		BufferedEventsCount: len(s.events),
	}
}

// ActiveSockets lists connections whose connect event has not been matched by
// a disconnect, with the number of rooms each is currently joined to.
func (s *Store) ActiveSockets() []SocketInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[string]*SocketInfo)
	order := make([]string, 0)

	for _, evt := range s.events {
		switch evt.Type {
		case models.EventSocketConnected:
			if evt.SocketID == "" {
				continue
			}
			if _, ok := active[evt.SocketID]; !ok {
				order = append(order, evt.SocketID)
			}
			active[evt.SocketID] = &SocketInfo{
				SocketID: evt.SocketID,
				UserID:   evt.UserID,
				TenantID: evt.TenantID,
			}
		case models.EventSocketDisconnected:
			delete(active, evt.SocketID)
		case models.EventRoomJoined:
			if info, ok := active[evt.SocketID]; ok {
				info.RoomsCount++
			}
		case models.EventRoomLeft:
			if info, ok := active[evt.SocketID]; ok && info.RoomsCount > 0 {
				info.RoomsCount--
			}
		}
	}

	out := make([]SocketInfo, 0, len(active))
	for _, id := range order {
		if info, ok := active[id]; ok {
			out = append(out, *info)
		}
	}
	return out
}

// Reset clears all buffered events. Test isolation only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.nextID = 0
}

// evictLocked drops events past the capacity or age bound. Caller holds mu.
func (s *Store) evictLocked() {
	if len(s.events) > s.capacity {
		drop := len(s.events) - s.capacity
		s.events = append(s.events[:0], s.events[drop:]...)
	}

	cutoff := s.clock().Add(-s.maxAge)
	firstFresh := 0
	for firstFresh < len(s.events) && s.events[firstFresh].Timestamp.Before(cutoff) {
		firstFresh++
	}
	if firstFresh > 0 {
		s.events = append(s.events[:0], s.events[firstFresh:]...)
	}
}

func sortErrorCounts(counts []ErrorCount) {
	// Insertion sort: the grouped error list is small (one entry per code).
	for i := 1; i < len(counts); i++ {
		for j := i; j > 0 && errorCountLess(counts[j], counts[j-1]); j-- {
			counts[j], counts[j-1] = counts[j-1], counts[j]
		}
	}
}

func errorCountLess(a, b ErrorCount) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.LastSeen.After(b.LastSeen)
}
