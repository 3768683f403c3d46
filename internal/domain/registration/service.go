package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/phone"
	"github.com/rpggio/kinboard/internal/domain/photo"
)

// Service handles registration submissions.
type Service struct {
	store    *photo.Store
	layout   photo.Layout
	log      NotificationAppender
	notifier Notifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new registration service. log and notifier may be nil.
func NewService(store *photo.Store, layout photo.Layout, log NotificationAppender, notifier Notifier, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:    store,
		layout:   layout,
		log:      log,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register saves the submitted photos under the registrant's phone folder,
// updates meta.json, records the registration and acknowledges it.
// Re-registering appends photos; nothing already on disk is replaced.
func (s *Service) Register(ctx context.Context, req Request) (*Result, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.WhatsApp = strings.TrimSpace(req.WhatsApp)
	req.Secondary = strings.TrimSpace(req.Secondary)
	if req.Phone == "" || req.WhatsApp == "" {
		return nil, ErrMissingFields
	}
	key, err := phone.Key(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Key: key}
	res.Photos, err = s.store.Save(req.Photos, s.layout.RegistrationDir(key), photo.RegistrationPrefix)
	if err != nil {
		return res, fmt.Errorf("saving registration photos: %w", err)
	}
	if len(req.FamilyPhotos) > 0 {
		res.FamilyPhotos, err = s.store.Save(req.FamilyPhotos, s.layout.FamilyDir(key), photo.RegistrationPrefix)
		if err != nil {
			return res, fmt.Errorf("saving family photos: %w", err)
		}
	}

	res.Meta, err = s.writeMeta(key, req)
	if err != nil {
		return res, err
	}

	if s.opts.RecordNotifications && s.log != nil {
		entry := &notification.Entry{
			Kind:        notification.KindRegistration,
			Phone:       key,
			Description: fmt.Sprintf("%d photos, %d family photos", len(res.Photos), len(res.FamilyPhotos)),
		}
		if len(res.Photos) > 0 {
			entry.File = res.Photos[0].Name
		}
		if err := s.log.Append(ctx, entry); err != nil {
			s.logger.Warn("recording registration failed", "phone", key, "error", err)
		}
	}

	s.logger.Info("registration saved", "phone", key, "photos", len(res.Photos), "family_photos", len(res.FamilyPhotos))
	if s.notifier != nil {
		s.notifier.Notify(req.WhatsApp, Acknowledgement(key, len(res.Photos), req.PortalURL))
	}
	return res, nil
}

// Acknowledgement is the message sent to the registrant's WhatsApp number.
func Acknowledgement(key string, photos int, portalURL string) string {
	msg := fmt.Sprintf("Registration completed.\nPhone: %s\nPhotos: %d", key, photos)
	if portalURL != "" {
		msg += "\nOpen portal: " + strings.TrimRight(portalURL, "/")
	}
	return msg
}

// ReadMeta loads meta.json for key.
func (s *Service) ReadMeta(key string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(s.layout.MetaPath(key))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decoding meta.json: %w", err)
	}
	return meta, nil
}

// writeMeta merges req into meta.json. The read and the rename happen under
// one lock per registrant so concurrent submissions keep each other's values.
func (s *Service) writeMeta(key string, req Request) (Meta, error) {
	unlock := s.store.Lock(s.layout.MetaPath(key))
	defer unlock()

	now := s.now()
	meta := Meta{
		Phone:     key,
		WhatsApp:  req.WhatsApp,
		Secondary: req.Secondary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	prev, err := s.ReadMeta(key)
	switch {
	case err == nil:
		if !prev.CreatedAt.IsZero() {
			meta.CreatedAt = prev.CreatedAt
		}
		if meta.Secondary == "" {
			meta.Secondary = prev.Secondary
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.logger.Warn("replacing unreadable meta.json", "phone", key, "error", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return meta, fmt.Errorf("encoding meta.json: %w", err)
	}
	if err := writeFileAtomic(s.layout.MetaPath(key), data); err != nil {
		return meta, fmt.Errorf("writing meta.json: %w", err)
	}
	return meta, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".meta-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
