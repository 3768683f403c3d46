package notification

import "context"

// Repository provides persistence for the notification log. Implementations
// only ever append; List returns entries in storage (oldest-first) order.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context) ([]Entry, error)
}
