package missing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/phone"
	"github.com/rpggio/kinboard/internal/domain/photo"
)

// Service handles missing-person reports.
type Service struct {
	store    *photo.Store
	layout   photo.Layout
	log      NotificationAppender
	notifier Notifier
	opts     Options
	logger   *slog.Logger
}

// NewService creates a new missing-report service. notifier may be nil.
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
	}
}

// Report saves every accepted photo as m<N><ext> in the reporter's folder,
// pairs each with m<N>.txt when a description is given, and appends one
// notification entry per saved photo. Without photos the description alone
// is kept as m<N>.txt. Validation failures write nothing.
func (s *Service) Report(ctx context.Context, req Request) (*Result, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.WhatsApp = strings.TrimSpace(req.WhatsApp)
	req.Description = strings.TrimSpace(req.Description)
	if req.Phone == "" || req.WhatsApp == "" {
		return nil, ErrMissingFields
	}
	key, err := phone.Key(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	if s.opts.RequirePhoto && !s.store.HasAllowed(req.Photos) {
		return nil, ErrPhotoRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]photo.File, len(req.Photos))
	for i, f := range req.Photos {
		f.Description = req.Description
		files[i] = f
	}

	res := &Result{Key: key}
	res.Photos, err = s.store.Save(files, s.layout.MissingDir(key), photo.MissingPrefix)
	if err != nil {
		return res, fmt.Errorf("saving missing photos: %w", err)
	}

	if len(res.Photos) == 0 {
		entry := notification.Entry{Kind: notification.KindMissing, Phone: key, Description: req.Description}
		if req.Description != "" {
			text, err := s.store.SaveText(s.layout.MissingDir(key), photo.MissingPrefix, req.Description)
			if err != nil {
				return res, fmt.Errorf("saving missing description: %w", err)
			}
			entry.File = text.Name
		}
		if err := s.log.Append(ctx, &entry); err != nil {
			return res, fmt.Errorf("recording missing report: %w", err)
		}
		res.Entries = append(res.Entries, entry)
	}
	for _, saved := range res.Photos {
		entry := notification.Entry{
			Kind:        notification.KindMissing,
			Phone:       key,
			File:        saved.Name,
			Description: req.Description,
		}
		if err := s.log.Append(ctx, &entry); err != nil {
			return res, fmt.Errorf("recording missing report: %w", err)
		}
		res.Entries = append(res.Entries, entry)
	}

	s.logger.Info("missing report saved", "phone", key, "photos", len(res.Photos), "has_description", req.Description != "")
	if s.notifier != nil {
		s.notifier.Notify(req.WhatsApp, Acknowledgement(key, len(res.Photos)))
	}
	return res, nil
}

// Acknowledgement is the message sent to the reporter's WhatsApp number.
func Acknowledgement(key string, photos int) string {
	return fmt.Sprintf("Missing person report received.\nReporter: %s\nPhotos: %d\nWe'll notify you of updates.", key, photos)
}
