package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

// MockNotifier is a mock implementation of app.Notifier.
type MockNotifier struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotifier) SendMessage(ctx context.Context, content string, opts ...notification.MessageOption) error {
	args := m.Called(ctx, content, opts)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotifier) SendEmbed(ctx context.Context, embed notification.Embed) error {
	args := m.Called(ctx, embed)
	return args.Error(0)
}

// MockPublisher is a mock implementation of app.Publisher.
type MockPublisher struct {
	mock.Mock
}

//nolint:revive
func (m *MockPublisher) Publish(ctx context.Context, channel string, message any) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}
