package registration

import (
	"time"

	"github.com/rpggio/kinboard/internal/domain/photo"
)

// Request is one registration form submission.
type Request struct {
	Phone        string
	WhatsApp     string
	Secondary    string
	Photos       []photo.File
	FamilyPhotos []photo.File
	// PortalURL is included in the acknowledgement when set.
	PortalURL string
}

// Meta is persisted as meta.json next to the registrant's photos.
type Meta struct {
	Phone     string    `json:"phone"`
	WhatsApp  string    `json:"whatsapp"`
	Secondary string    `json:"secondary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result reports what a registration wrote.
type Result struct {
	Key          string
	Photos       []photo.Saved
	FamilyPhotos []photo.Saved
	Meta         Meta
}

// Options tunes the registration service.
type Options struct {
	// RecordNotifications appends a registration entry to the notification log.
	RecordNotifications bool
}
