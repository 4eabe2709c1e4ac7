package service

import (
	"context"

	"chatsync/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, room string, msg *models.Message) int {
	args := m.Called(ctx, room, msg)
	return args.Int(0)
}

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, userID, tenantID, room string) error {
	args := m.Called(ctx, userID, tenantID, room)
	return args.Error(0)
}

type mockCleaner struct {
	mock.Mock
}

func (m *mockCleaner) CleanupOldMessages(ctx context.Context, retentionDays int) error {
	args := m.Called(ctx, retentionDays)
	return args.Error(0)
}
