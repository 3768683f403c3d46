// Package bootstrap assembles the services shared by the server and the
// admin CLI from a loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rpggio/kinboard/internal/config"
	"github.com/rpggio/kinboard/internal/domain/index"
	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/photo"
	"github.com/rpggio/kinboard/internal/domain/registration"
	"github.com/rpggio/kinboard/internal/jsonlog"
	"github.com/rpggio/kinboard/internal/metrics"
	"github.com/rpggio/kinboard/internal/repository"
	"github.com/rpggio/kinboard/internal/sqlite"
	"github.com/rpggio/kinboard/internal/transport"
	"github.com/rpggio/kinboard/internal/whatsapp"
)

// App holds the wired components.
type App struct {
	Config            config.Config
	Logger            *slog.Logger
	Layout            photo.Layout
	Metrics           *metrics.Metrics
	NotificationStore repository.LegacyImporter
	Notifications     *notification.Service
	Registrations     *registration.Service
	Missing           *missing.Service
	Sender            whatsapp.Sender
	Dispatcher        *whatsapp.Dispatcher

	db *sqlite.DB
}

// New opens storage and builds every service. Close releases it.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	layout := photo.Layout{Root: cfg.Storage.Root}
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	store, db, err := OpenNotificationStore(cfg, layout, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	sender := whatsapp.New(whatsapp.Config{
		AccountSID:         cfg.WhatsApp.AccountSID,
		AuthToken:          cfg.WhatsApp.AuthToken,
		From:               cfg.WhatsApp.From,
		BaseURL:            cfg.WhatsApp.BaseURL,
		DefaultCountryCode: cfg.WhatsApp.DefaultCountryCode,
		Timeout:            cfg.WhatsApp.Timeout,
		Retries:            cfg.WhatsApp.Retries,
	}, logger)
	dispatcher := whatsapp.NewDispatcher(sender, cfg.WhatsApp.DispatchTimeout, logger, func(res whatsapp.Result) {
		m.ObserveWhatsApp(res.Delivered, res.Detail)
	})

	notifications := notification.NewService(store, cfg.Notifications.SnippetLength, logger)
	appender := &countingAppender{next: notifications, metrics: m}
	photos := photo.NewStore(index.NewAllocator(), cfg.Uploads.Extensions, logger)

	app := &App{
		Config:            cfg,
		Logger:            logger,
		Layout:            layout,
		Metrics:           m,
		NotificationStore: store,
		Notifications:     notifications,
		Registrations: registration.NewService(photos, layout, appender, dispatcher,
			registration.Options{RecordNotifications: cfg.Notifications.RecordRegistrations}, logger),
		Missing: missing.NewService(photos, layout, appender, dispatcher,
			missing.Options{RequirePhoto: cfg.Uploads.MissingRequiresPhoto}, logger),
		Sender:     sender,
		Dispatcher: dispatcher,
		db:         db,
	}
	if _, ok := sender.(whatsapp.Disabled); ok {
		logger.Info("whatsapp acknowledgements disabled: credentials not configured")
	}
	if !cfg.DiagnosticsEnabled() {
		logger.Info("diagnostics endpoint disabled: no key configured")
	}
	return app, nil
}

// OpenNotificationStore opens the backend selected by notifications.backend.
// The returned DB is nil for the JSON Lines backend.
func OpenNotificationStore(cfg config.Config, layout photo.Layout, logger *slog.Logger) (repository.LegacyImporter, *sqlite.DB, error) {
	switch cfg.Notifications.Backend {
	case config.BackendJSONL:
		return jsonlog.New(layout.NotificationsPath(), logger), nil, nil
	case config.BackendSQLite, "":
		path := cfg.DBPath()
		if err := ensureDBDir(path); err != nil {
			return nil, nil, fmt.Errorf("preparing database path: %w", err)
		}
		db, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewNotificationRepository(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifications backend %q", cfg.Notifications.Backend)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Handler builds the HTTP router.
func (a *App) Handler() (http.Handler, error) {
	var limiter *transport.RateLimiter
	if a.Config.RateLimit.Enabled {
		limiter = transport.NewRateLimiter(a.Config.RateLimit.RequestsPerMinute, a.Config.RateLimit.Burst)
	}
	return transport.NewServer(transport.Config{
		Services: transport.Services{
			Registrations: a.Registrations,
			Missing:       a.Missing,
			Notifications: a.Notifications,
			WhatsApp:      a.Sender,
		},
		Metrics:              a.Metrics,
		Logger:               a.Logger,
		MaxRequestBytes:      a.Config.Uploads.MaxRequestBytes,
		MissingRequiresPhoto: a.Config.Uploads.MissingRequiresPhoto,
		DiagnosticKey:        transport.NewKeyMatcher(a.Config.Diagnostics.Key),
		RateLimiter:          limiter,
		TrustProxyHeaders:    a.Config.Server.TrustProxyHeaders,
	})
}

// ImportLegacyFile appends the entries of a legacy notifications.json array
// to the configured store, in file order, with descriptions cut like any
// other entry.
func (a *App) ImportLegacyFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	entries, err := jsonlog.ReadLegacy(f)
	if err != nil {
		return 0, err
	}
	a.Notifications.TruncateDescriptions(entries)
	n, err := a.NotificationStore.Import(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", path, err)
	}
	return n, nil
}

// MigrateLegacy imports <root>/Missing/notifications.json once and renames it
// so later starts skip it. A missing file is not an error.
func (a *App) MigrateLegacy(ctx context.Context) (int, error) {
	path := a.Layout.LegacyNotificationsPath()
	n, err := a.ImportLegacyFile(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(path, path+".imported"); err != nil {
		return n, fmt.Errorf("marking legacy notifications imported: %w", err)
	}
	a.Logger.Info("imported legacy notifications", "path", path, "entries", n)
	return n, nil
}

// Close waits for in-flight acknowledgements, then closes storage.
func (a *App) Close(ctx context.Context) error {
	waitErr := a.Dispatcher.Close(ctx)
	if waitErr != nil {
		a.Logger.Warn("shutdown before all acknowledgements finished", "error", waitErr)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}
	return waitErr
}

// countingAppender counts appended notifications by kind.
type countingAppender struct {
	next    *notification.Service
	metrics *metrics.Metrics
}

func (c *countingAppender) Append(ctx context.Context, entry *notification.Entry) error {
	if err := c.next.Append(ctx, entry); err != nil {
		return err
	}
	c.metrics.ObserveNotification(string(entry.Kind))
	return nil
}
