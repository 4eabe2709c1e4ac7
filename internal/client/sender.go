package client

import (
	"context"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
)

// SendFunc performs the send API call and returns the persisted message.
type SendFunc func(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)

// Sender drives the optimistic send flow for one room: insert the
// placeholder, call the send API under a bounded timeout, then reconcile the
// acknowledgment or mark the placeholder failed. A send that neither
// acknowledges nor errors within the timeout fails rather than hanging.
type Sender struct {
	view    *RoomView
	send    SendFunc
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewSender(view *RoomView, send SendFunc, timeout time.Duration, logger *logrus.Logger) *Sender {
	if timeout <= 0 {
		timeout = constants.DefaultSendTimeout
	}
	return &Sender{
		view:    view,
		send:    send,
		timeout: timeout,
		logger:  logger,
	}
}

// NewSenderWithBreaker wraps the send API calls in a circuit breaker: once
// the backend has failed repeatedly, new sends fail fast as failed
// placeholders instead of each waiting out the timeout.
func NewSenderWithBreaker(view *RoomView, send SendFunc, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker, logger *logrus.Logger) *Sender {
	s := NewSender(view, send, timeout, logger)
	s.breaker = breaker
	return s
}

// Send submits body and blocks until the send call resolves or times out.
// The optimistic placeholder is visible from before the network call starts.
// Returns the temp id of the placeholder; callers typically run Send on its
// own goroutine, one per submit.
func (s *Sender) Send(ctx context.Context, req models.SendMessageRequest) (string, error) {
	entry := s.view.AppendPending(req)
	if entry == nil {
		// Room closed before the send started; nothing to show or send.
		return "", errors.New(errors.ErrCodeNotFound, "room is closed")
	}
	tempID := entry.TempID

	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			s.view.MarkFailed(tempID)
			s.logger.WithField("temp_id", tempID).Warn("Send rejected, backend circuit open")
			return tempID, err
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.send(sendCtx, req)
	if s.breaker != nil {
		s.breaker.Record(err)
	}
	if err != nil {
		if sendCtx.Err() == context.DeadlineExceeded {
			err = errors.NewTimeoutError("message send", s.timeout.String())
		}
		s.view.MarkFailed(tempID)
		s.logger.WithError(err).WithField("temp_id", tempID).Warn("Send failed, placeholder marked failed")
		return tempID, err
	}

	s.view.ApplyConfirmed(*msg)
	return tempID, nil
}

// Retry re-submits a failed placeholder as a brand new optimistic send.
func (s *Sender) Retry(ctx context.Context, tempID string) (string, error) {
	s.view.mu.Lock()
	var failed *Entry
	for _, e := range s.view.entries {
		if e.Failed() && e.TempID == tempID {
			failed = e
			break
		}
	}
	s.view.mu.Unlock()

	if failed == nil {
		return "", errors.New(errors.ErrCodeNotFound, "no failed message with that id")
	}

	req := models.SendMessageRequest{
		TenantID:     failed.TenantID,
		ChannelID:    failed.ChannelID,
		DMThreadID:   failed.DMThreadID,
		AuthorUserID: failed.AuthorUserID,
		Body:         failed.Body,
	}
	s.view.Discard(tempID)
	return s.Send(ctx, req)
}
