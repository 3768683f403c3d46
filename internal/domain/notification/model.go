package notification

import "time"

// Kind identifies what produced an entry.
type Kind string

const (
	KindMissing      Kind = "missing"
	KindRegistration Kind = "registration"
)

// StatusReceived is the status of every freshly recorded entry.
const StatusReceived = "received"

// Entry is one immutable record in the notification log.
type Entry struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Phone       string    `json:"phone"`
	File        string    `json:"file"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}
