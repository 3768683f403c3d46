package repository

import (
	"context"

	"github.com/rpggio/kinboard/internal/domain/notification"
)

// NotificationRepository manages notification log persistence
type NotificationRepository interface {
	Append(ctx context.Context, entry *notification.Entry) error
	List(ctx context.Context) ([]notification.Entry, error)
}

// LegacyImporter bulk-loads entries in their original order
type LegacyImporter interface {
	NotificationRepository
	Import(ctx context.Context, entries []notification.Entry) (int, error)
}
