package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/internal/privacy"
	"chatsync/internal/tracing"
	"chatsync/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Storage persists messages. The write must be atomic: either the record
// exists afterwards or it does not.
type Storage interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// Broadcaster fans a persisted message out to every connection joined to the
// room and returns the number of successful deliveries.
type Broadcaster interface {
	Broadcast(ctx context.Context, room string, msg *models.Message) int
}

// Authorizer checks that a user is a member of the target room.
type Authorizer interface {
	Authorize(ctx context.Context, userID, tenantID, room string) error
}

// EventSink receives chat lifecycle debug events.
type EventSink interface {
	LogEvent(evt models.ChatDebugEvent)
}

// MessageService is the server-side ingest and broadcast pipeline. A send
// request moves through received, validated, persisted, broadcast,
// acknowledged; failures before persistence are surfaced to the sender only
// and nothing is broadcast.
type MessageService interface {
	Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
	Flush()
}

type messageService struct {
	logger      *logrus.Logger
	store       Storage
	broadcaster Broadcaster
	auth        Authorizer
	debug       EventSink
	clock       func() time.Time
	fanout      sync.WaitGroup
}

func NewMessageService(store Storage, broadcaster Broadcaster, auth Authorizer, debug EventSink, logger *logrus.Logger) MessageService {
	return &messageService{
		logger:      logger,
		store:       store,
		broadcaster: broadcaster,
		auth:        auth,
		debug:       debug,
		clock:       time.Now,
	}
}

// NewMessageServiceWithClock is used by tests that need deterministic
// timestamps.
func NewMessageServiceWithClock(store Storage, broadcaster Broadcaster, auth Authorizer, debug EventSink, logger *logrus.Logger, clock func() time.Time) MessageService {
	return &messageService{
		logger:      logger,
		store:       store,
		broadcaster: broadcaster,
		auth:        auth,
		debug:       debug,
		clock:       clock,
	}
}

func (s *messageService) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message_send",
		attribute.String("chat.tenant_id", req.TenantID),
	)
	defer span.End()

	room := req.Room()

	if err := s.validate(req, room); err != nil {
		s.logSendAttempt(req, room, errors.GetCode(err))
		tracing.RecordError(ctx, err)
		return nil, err
	}

	if err := s.auth.Authorize(ctx, req.AuthorUserID, req.TenantID, room); err != nil {
		authErr := errors.NewAuthorizationError(req.AuthorUserID, room, err)
		s.logSendAttempt(req, room, errors.ErrCodeAuthorization)
		tracing.RecordError(ctx, authErr)
		return nil, authErr
	}

	s.logSendAttempt(req, room, "")

	msg := &models.Message{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		ChannelID:    req.ChannelID,
		DMThreadID:   req.DMThreadID,
		AuthorUserID: req.AuthorUserID,
		Body:         req.Body,
		CreatedAt:    s.clock().UTC(),
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		persistErr := errors.NewPersistenceError("save message", err)
		s.debug.LogEvent(models.ChatDebugEvent{
			Type:      models.EventError,
			UserID:    req.AuthorUserID,
			TenantID:  req.TenantID,
			Room:      room,
			ErrorCode: string(errors.ErrCodePersistence),
		})
		s.logger.WithError(err).WithFields(logrus.Fields{
			"room":   privacy.MaskRoom(room),
			"author": privacy.MaskUserID(req.AuthorUserID),
		}).Error("Message persistence failed")
		tracing.RecordError(ctx, persistErr)
		return nil, persistErr
	}

	s.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventMessagePersisted,
		UserID:   req.AuthorUserID,
		TenantID: req.TenantID,
		Room:     room,
	})

	// The acknowledgment to the sender does not wait for fan-out; clients
	// reconcile their own echo from the broadcast channel.
	s.fanout.Add(1)
	go s.broadcast(context.WithoutCancel(ctx), room, msg)

	return msg, nil
}

// Flush waits for in-flight broadcast fan-outs. Used during shutdown and in
// tests.
func (s *messageService) Flush() {
	s.fanout.Wait()
}

func (s *messageService) broadcast(ctx context.Context, room string, msg *models.Message) {
	defer s.fanout.Done()

	delivered := s.broadcaster.Broadcast(ctx, room, msg)

	s.debug.LogEvent(models.ChatDebugEvent{
		Type:     models.EventMessageBroadcast,
		UserID:   msg.AuthorUserID,
		TenantID: msg.TenantID,
		Room:     room,
	})

	s.logger.WithFields(logrus.Fields{
		"room":      privacy.MaskRoom(room),
		"delivered": delivered,
	}).Debug("Message broadcast completed")
}

func (s *messageService) validate(req models.SendMessageRequest, room string) error {
	if strings.TrimSpace(req.Body) == "" {
		return errors.NewValidationError("body", "message body must not be empty")
	}
	if err := validation.ValidateMessageBody(req.Body); err != nil {
		return err
	}
	if req.TenantID == "" {
		return errors.NewValidationError("tenantId", "tenant is required")
	}
	if req.AuthorUserID == "" {
		return errors.NewValidationError("authorUserId", "author is required")
	}
	if room == "" {
		return errors.NewValidationError("channelId", "exactly one of channelId and dmThreadId must be set")
	}
	return nil
}

// logSendAttempt records the message_send_attempt event; errorCode carries
// the outcome when the request was rejected. Bodies never reach the event.
func (s *messageService) logSendAttempt(req models.SendMessageRequest, room string, code errors.ErrorCode) {
	s.debug.LogEvent(models.ChatDebugEvent{
		Type:      models.EventMessageSendAttempt,
		UserID:    req.AuthorUserID,
		TenantID:  req.TenantID,
		Room:      room,
		ErrorCode: string(code),
	})
}
