package missing

import (
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/photo"
)

// Request is one missing-person report.
type Request struct {
	Phone       string
	WhatsApp    string
	Description string
	Photos      []photo.File
}

// Result reports what a missing report wrote.
type Result struct {
	Key     string
	Photos  []photo.Saved
	Entries []notification.Entry
}

// Options tunes the missing-report service.
type Options struct {
	// RequirePhoto rejects reports without at least one accepted photo.
	RequirePhoto bool
}
