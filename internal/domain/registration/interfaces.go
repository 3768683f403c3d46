package registration

import (
	"context"

	"github.com/rpggio/kinboard/internal/domain/notification"
)

// Notifier sends a best-effort acknowledgement. Implementations must not block.
type Notifier interface {
	Notify(to, text string)
}

// NotificationAppender records a registration in the notification log.
type NotificationAppender interface {
	Append(ctx context.Context, entry *notification.Entry) error
}
