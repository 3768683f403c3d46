package mocks

import (
	"context"

	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/whatsapp"
	"github.com/stretchr/testify/mock"
)

// NotificationRepository is a mock for repository.NotificationRepository.
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Append(ctx context.Context, entry *notification.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *NotificationRepository) List(ctx context.Context) ([]notification.Entry, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]notification.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock for the fire-and-forget acknowledgement hook used by
// the registration and missing-report services.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(to, text string) {
	m.Called(to, text)
}

// Sender is a mock for whatsapp.Sender.
type Sender struct {
	mock.Mock
}

func (m *Sender) Send(ctx context.Context, to, text string) whatsapp.Result {
	args := m.Called(ctx, to, text)
	return args.Get(0).(whatsapp.Result)
}
