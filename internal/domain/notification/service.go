package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultSnippetLength caps stored descriptions, in runes.
const DefaultSnippetLength = 160

// Service records and reads the notification log.
type Service struct {
	repo          Repository
	snippetLength int
	logger        *slog.Logger
}

// NewService creates a new notification service. A non-positive
// snippetLength selects DefaultSnippetLength.
func NewService(repo Repository, snippetLength int, logger *slog.Logger) *Service {
	if snippetLength <= 0 {
		snippetLength = DefaultSnippetLength
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, snippetLength: snippetLength, logger: logger}
}

// Append fills in ID, timestamp and status when missing, truncates the
// description and stores the entry.
func (s *Service) Append(ctx context.Context, entry *Entry) error {
	if entry == nil || strings.TrimSpace(entry.Phone) == "" {
		return ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusReceived
	}
	if entry.Kind == "" {
		entry.Kind = KindMissing
	}
	entry.Description = Snippet(entry.Description, s.snippetLength)

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	s.logger.Debug("notification recorded", "id", entry.ID, "kind", entry.Kind, "phone", entry.Phone, "file", entry.File)
	return nil
}

// TruncateDescriptions cuts every description to the service's snippet length.
// Bulk imports use it since they bypass Append.
func (s *Service) TruncateDescriptions(entries []Entry) {
	for i := range entries {
		entries[i].Description = Snippet(entries[i].Description, s.snippetLength)
	}
}

// ListNewestFirst returns all entries, most recent first. Storage order is
// left untouched.
func (s *Service) ListNewestFirst(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}

// Snippet trims s and cuts it to at most limit runes.
func Snippet(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
