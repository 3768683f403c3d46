package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/kinboard/internal/config"
	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/photo"
	"github.com/rpggio/kinboard/internal/whatsapp"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.Notifications.Backend = backend
	return cfg
}

func newApp(t *testing.T, backend string) *App {
	t.Helper()
	app, err := New(testConfig(t, backend), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendJSONL} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			app := newApp(t, backend)
			require.IsType(t, whatsapp.Disabled{}, app.Sender)

			_, err := app.Missing.Report(ctx, missing.Request{
				Phone:       "9999999999",
				WhatsApp:    "9999999999",
				Description: "seen near market",
				Photos:      []photo.File{photo.FromBytes("a.jpg", []byte("a")), photo.FromBytes("b.jpg", []byte("b"))},
			})
			require.NoError(t, err)

			entries, err := app.Notifications.ListNewestFirst(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, "m2.jpg", entries[0].File)
			require.Equal(t, "m1.jpg", entries[1].File)
		})
	}
}

func TestNew_LogsDisabledFeatures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig(t, config.BackendJSONL)
	app, err := New(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))
	require.Contains(t, buf.String(), "diagnostics endpoint disabled")

	buf.Reset()
	cfg = testConfig(t, config.BackendJSONL)
	cfg.Diagnostics.Key = "s3cret"
	app, err = New(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))
	require.NotContains(t, buf.String(), "diagnostics endpoint disabled")
}

func TestNew_SQLiteFileUnderRoot(t *testing.T) {
	app := newApp(t, config.BackendSQLite)
	require.FileExists(t, filepath.Join(app.Config.Storage.Root, "kinboard.db"))
}

func TestOpenNotificationStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, "postgres")
	_, _, err := OpenNotificationStore(cfg, photo.Layout{Root: cfg.Storage.Root}, nil)
	require.ErrorContains(t, err, "postgres")
}

func TestMigrateLegacy(t *testing.T) {
	ctx := context.Background()
	app := newApp(t, config.BackendSQLite)

	n, err := app.MigrateLegacy(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	legacy := app.Layout.LegacyNotificationsPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(legacy), 0o755))
	require.NoError(t, os.WriteFile(legacy, []byte(`[
		{"ts": "2025-08-01T10:00:00Z", "kind": "registration", "phone": "8888888888", "extra": {"photos": 2}},
		{"phone": "9999999999", "file": "m1.jpg", "timestamp": "2025-08-02T10:00:00Z", "status": "received", "description": "old"}
	]`), 0o644))

	n, err = app.MigrateLegacy(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoFileExists(t, legacy)
	require.FileExists(t, legacy+".imported")

	entries, err := app.Notifications.ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "9999999999", entries[0].Phone)
	require.Equal(t, notification.KindRegistration, entries[1].Kind)

	n, err = app.MigrateLegacy(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestImportLegacyFile_TruncatesDescriptions(t *testing.T) {
	ctx := context.Background()
	app := newApp(t, config.BackendJSONL)

	long := strings.Repeat("x", 500)
	path := filepath.Join(t.TempDir(), "notifications.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"phone": "9999999999", "file": "m1.jpg", "timestamp": "2025-08-02T10:00:00Z", "status": "received", "description": "`+long+`"}
	]`), 0o644))

	n, err := app.ImportLegacyFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	entries, err := app.Notifications.ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, long[:app.Config.Notifications.SnippetLength], entries[0].Description)
}

func TestHandler(t *testing.T) {
	app := newApp(t, config.BackendJSONL)
	handler, err := app.Handler()
	require.NoError(t, err)
	require.NotNil(t, handler)
}
