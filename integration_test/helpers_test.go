package integration

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"chatsync/internal/chatdebug"
	"chatsync/internal/database"
	"chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/internal/registry"
	"chatsync/internal/service"
	"chatsync/internal/validation"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// env wires the real pipeline end to end: SQLite storage, the connection
// registry and the message service, with in-memory transports standing in for
// WebSocket connections.
type env struct {
	db      *database.Database
	debug   *chatdebug.Store
	reg     *registry.Registry
	service service.MessageService
}

// structuralAuthorizer mirrors the server's default: identities must be
// present and the room name well formed.
type structuralAuthorizer struct{}

func (structuralAuthorizer) Authorize(ctx context.Context, userID, tenantID, room string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuthorization, "bad user identity")
	}
	if err := validation.ValidateTenantID(tenantID); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuthorization, "bad tenant identity")
	}
	return validation.ValidateRoomName(room)
}

// memorySender collects broadcast messages in memory, one per connection.
type memorySender struct {
	mu       sync.Mutex
	received []*models.Message
}

func (s *memorySender) Send(ctx context.Context, v interface{}) error {
	msg, ok := v.(*models.Message)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
	return nil
}

func (s *memorySender) messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.received))
	copy(out, s.received)
	return out
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	db, err := database.New(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	debug := chatdebug.NewStore(true)
	auth := structuralAuthorizer{}
	reg := registry.New(auth, debug, logger)
	svc := service.NewMessageService(db, reg, auth, debug, logger)

	return &env{
		db:      db,
		debug:   debug,
		reg:     reg,
		service: svc,
	}
}

// connect registers a connection and joins it to the given rooms.
func (e *env) connect(t *testing.T, userID, tenantID string, rooms ...string) (*memorySender, string) {
	t.Helper()

	sender := &memorySender{}
	socketID := e.reg.Register(sender, userID, tenantID)
	for _, room := range rooms {
		require.NoError(t, e.reg.JoinRoom(context.Background(), socketID, room))
	}
	return sender, socketID
}

func strPtr(s string) *string { return &s }
