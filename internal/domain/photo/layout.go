package photo

import "path/filepath"

// Filename prefixes and fixed names inside the storage root.
const (
	RegistrationPrefix = "p"
	MissingPrefix      = "m"

	registrationDir = "Registration"
	missingDir      = "Missing"
	familyDir       = "family"
	metaFile        = "meta.json"
	notifyFile      = "notifications.jsonl"
	legacyNotify    = "notifications.json"
)

// Layout maps phone keys to directories under a single storage root.
// Keys must already be sanitized (see phone.Key).
type Layout struct {
	Root string
}

// RegistrationDir is <root>/Registration/<phone>.
func (l Layout) RegistrationDir(key string) string {
	return filepath.Join(l.Root, registrationDir, key)
}

// FamilyDir is <root>/Registration/<phone>/family.
func (l Layout) FamilyDir(key string) string {
	return filepath.Join(l.RegistrationDir(key), familyDir)
}

// MetaPath is <root>/Registration/<phone>/meta.json.
func (l Layout) MetaPath(key string) string {
	return filepath.Join(l.RegistrationDir(key), metaFile)
}

// MissingDir is <root>/Missing/<phone>.
func (l Layout) MissingDir(key string) string {
	return filepath.Join(l.Root, missingDir, key)
}

// NotificationsPath is the JSON Lines notification log.
func (l Layout) NotificationsPath() string {
	return filepath.Join(l.Root, missingDir, notifyFile)
}

// LegacyNotificationsPath is where older deployments kept the JSON array log.
func (l Layout) LegacyNotificationsPath() string {
	return filepath.Join(l.Root, missingDir, legacyNotify)
}
