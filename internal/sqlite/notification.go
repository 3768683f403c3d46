package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/repository"
)

// NotificationRepository implements repository.NotificationRepository for SQLite
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertNotification = `
	INSERT INTO notifications (
		id, kind, phone, file, status, description, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Append inserts a new notification entry
func (r *NotificationRepository) Append(ctx context.Context, entry *notification.Entry) error {
	return insert(ctx, r.db, entry)
}

// Import appends entries in the given order inside one transaction
func (r *NotificationRepository) Import(ctx context.Context, entries []notification.Entry) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for i := range entries {
		if err := insert(ctx, tx, &entries[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(entries), nil
}

func insert(ctx context.Context, exec execer, entry *notification.Entry) error {
	createdAt := entry.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := exec.ExecContext(ctx, insertNotification,
		entry.ID,
		string(entry.Kind),
		entry.Phone,
		entry.File,
		entry.Status,
		entry.Description,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("notification %s already recorded: %w", entry.ID, repository.ErrInvalidInput)
		}
		return fmt.Errorf("failed to append notification: %w", err)
	}

	entry.Timestamp = createdAt
	return nil
}

// List returns every entry in insertion order
func (r *NotificationRepository) List(ctx context.Context) ([]notification.Entry, error) {
	query := `
		SELECT id, kind, phone, file, status, description, created_at
		FROM notifications
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	entries := []notification.Entry{}
	for rows.Next() {
		var entry notification.Entry
		var kind string
		if err := rows.Scan(
			&entry.ID,
			&kind,
			&entry.Phone,
			&entry.File,
			&entry.Status,
			&entry.Description,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		entry.Kind = notification.Kind(kind)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return entries, nil
}
