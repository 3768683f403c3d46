package missing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/photo"
	"github.com/rpggio/kinboard/internal/jsonlog"
	"github.com/rpggio/kinboard/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, repo notification.Repository, notifier missing.Notifier, opts missing.Options) (*missing.Service, *notification.Service, photo.Layout) {
	t.Helper()
	layout := photo.Layout{Root: t.TempDir()}
	log := notification.NewService(repo, 0, nil)
	return missing.NewService(photo.NewStore(nil, nil, nil), layout, log, notifier, opts, nil), log, layout
}

func TestReport_EndToEnd(t *testing.T) {
	ctx := context.Background()
	notifier := &mocks.Notifier{}
	notifier.On("Notify", "9999999999", missing.Acknowledgement("9999999999", 1)).Return()

	layout := photo.Layout{Root: t.TempDir()}
	log := notification.NewService(jsonlog.New(layout.NotificationsPath(), nil), 0, nil)
	svc := missing.NewService(photo.NewStore(nil, nil, nil), layout, log, notifier, missing.Options{RequirePhoto: true}, nil)

	_, err := svc.Report(ctx, missing.Request{
		Phone:       "9999999999",
		WhatsApp:    "9999999999",
		Description: "seen near market",
		Photos:      []photo.File{photo.FromBytes("person.jpg", []byte("jpeg"))},
	})
	require.NoError(t, err)

	dir := filepath.Join(layout.Root, "Missing", "9999999999")
	require.FileExists(t, filepath.Join(dir, "m1.jpg"))
	desc, err := os.ReadFile(filepath.Join(dir, "m1.txt"))
	require.NoError(t, err)
	require.Equal(t, "seen near market", string(desc))

	entries, err := log.ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "9999999999", entries[0].Phone)
	require.Equal(t, "m1.jpg", entries[0].File)
	require.Equal(t, "seen near market", entries[0].Description)
	notifier.AssertExpectations(t)
}

func TestReport_OneDescriptionFilePerPhoto(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("Append", ctx, mock.Anything).Return(nil)
	notifier := &mocks.Notifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return()
	svc, _, layout := newService(t, repo, notifier, missing.Options{RequirePhoto: true})

	res, err := svc.Report(ctx, missing.Request{
		Phone:       "9999999999",
		WhatsApp:    "9999999999",
		Description: "blue shirt",
		Photos: []photo.File{
			photo.FromBytes("a.jpg", []byte("a")),
			photo.FromBytes("skip.gif", []byte("x")),
			photo.FromBytes("b.webp", []byte("b")),
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Photos, 2)
	require.Len(t, res.Entries, 2)
	require.Equal(t, "m2.webp", res.Entries[1].File)

	dir := layout.MissingDir("9999999999")
	for _, name := range []string{"m1.jpg", "m1.txt", "m2.webp", "m2.txt"} {
		require.FileExists(t, filepath.Join(dir, name))
	}
	repo.AssertNumberOfCalls(t, "Append", 2)
}

func TestReport_RequiredPhotoRejectsWithoutWriting(t *testing.T) {
	repo := &mocks.NotificationRepository{}
	notifier := &mocks.Notifier{}
	svc, _, layout := newService(t, repo, notifier, missing.Options{RequirePhoto: true})

	_, err := svc.Report(context.Background(), missing.Request{
		Phone:    "9999999999",
		WhatsApp: "9999999999",
		Photos:   []photo.File{photo.FromBytes("clip.gif", []byte("x"))},
	})
	require.ErrorIs(t, err, missing.ErrPhotoRequired)
	require.NoDirExists(t, layout.MissingDir("9999999999"))
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestReport_WithoutPhotoWhenOptional(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.NotificationRepository{}
	repo.On("Append", ctx, mock.Anything).Return(nil)
	notifier := &mocks.Notifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return()
	svc, _, layout := newService(t, repo, notifier, missing.Options{})

	res, err := svc.Report(ctx, missing.Request{Phone: "9999999999", WhatsApp: "9999999999"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Empty(t, res.Entries[0].File)
	require.NoFileExists(t, filepath.Join(layout.MissingDir("9999999999"), "m1.txt"))
}

func TestReport_DescriptionWithoutPhotoIsKeptInFull(t *testing.T) {
	ctx := context.Background()
	layout := photo.Layout{Root: t.TempDir()}
	log := notification.NewService(jsonlog.New(layout.NotificationsPath(), nil), 0, nil)
	notifier := &mocks.Notifier{}
	notifier.On("Notify", "9999999999", missing.Acknowledgement("9999999999", 0)).Return()
	svc := missing.NewService(photo.NewStore(nil, nil, nil), layout, log, notifier, missing.Options{}, nil)

	dir := layout.MissingDir("9999999999")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m1.jpg"), []byte("earlier"), 0o644))

	description := strings.Repeat("tall, green jacket, last seen at the bus stand. ", 7)
	res, err := svc.Report(ctx, missing.Request{
		Phone:       "9999999999",
		WhatsApp:    "9999999999",
		Description: description,
	})
	require.NoError(t, err)
	require.Empty(t, res.Photos)
	require.Len(t, res.Entries, 1)
	require.Equal(t, "m2.txt", res.Entries[0].File)

	saved, err := os.ReadFile(filepath.Join(dir, "m2.txt"))
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(description), string(saved))

	entries, err := log.ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "m2.txt", entries[0].File)
	require.Len(t, []rune(entries[0].Description), notification.DefaultSnippetLength)
	notifier.AssertExpectations(t)
}

func TestReport_ValidatesFields(t *testing.T) {
	svc, _, _ := newService(t, &mocks.NotificationRepository{}, &mocks.Notifier{}, missing.Options{})

	_, err := svc.Report(context.Background(), missing.Request{Phone: "9999999999"})
	require.ErrorIs(t, err, missing.ErrMissingFields)

	_, err = svc.Report(context.Background(), missing.Request{Phone: "../x", WhatsApp: "9999999999"})
	require.ErrorIs(t, err, missing.ErrInvalidPhone)
}

func TestReport_LogFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("disk full")
	repo := &mocks.NotificationRepository{}
	repo.On("Append", ctx, mock.Anything).Return(storeErr)
	notifier := &mocks.Notifier{}
	svc, _, _ := newService(t, repo, notifier, missing.Options{})

	_, err := svc.Report(ctx, missing.Request{
		Phone:    "9999999999",
		WhatsApp: "9999999999",
		Photos:   []photo.File{photo.FromBytes("a.jpg", []byte("a"))},
	})
	require.ErrorIs(t, err, storeErr)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}
