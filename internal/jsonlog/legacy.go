package jsonlog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/kinboard/internal/domain/notification"
)

// legacyEntry accepts both shapes found in old notifications.json arrays:
// {phone, file, timestamp, status, description} and {ts, kind, phone, extra}.
type legacyEntry struct {
	Phone       string         `json:"phone"`
	File        string         `json:"file"`
	Timestamp   string         `json:"timestamp"`
	TS          string         `json:"ts"`
	Status      string         `json:"status"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	Extra       map[string]any `json:"extra"`
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ReadLegacy decodes a whole-file JSON array into entries, preserving the
// array order. Entries without a phone number are dropped.
func ReadLegacy(r io.Reader) ([]notification.Entry, error) {
	var raw []legacyEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding legacy notifications: %w", err)
	}

	entries := make([]notification.Entry, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item.Phone) == "" {
			continue
		}
		entry := notification.Entry{
			ID:          uuid.NewString(),
			Kind:        notification.KindMissing,
			Phone:       item.Phone,
			File:        item.File,
			Status:      item.Status,
			Description: item.Description,
		}
		if item.Kind == string(notification.KindRegistration) {
			entry.Kind = notification.KindRegistration
		}
		if entry.Status == "" {
			entry.Status = notification.StatusReceived
		}
		if entry.Description == "" && len(item.Extra) > 0 {
			entry.Description = describeExtra(item.Extra)
		}

		stamp := item.Timestamp
		if stamp == "" {
			stamp = item.TS
		}
		entry.Timestamp = parseLegacyTime(stamp)
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseLegacyTime falls back to now for missing or unparseable stamps.
func parseLegacyTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func describeExtra(extra map[string]any) string {
	if photos, ok := extra["photos"].(float64); ok {
		return fmt.Sprintf("%d photos", int(photos))
	}
	return ""
}
