package testserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/kinboard/internal/bootstrap"
	"github.com/rpggio/kinboard/internal/config"
	"github.com/stretchr/testify/require"
)

// TestServer is a fully wired kinboard instance on a temporary storage root.
type TestServer struct {
	Server *httptest.Server
	App    *bootstrap.App
	Root   string
	Twilio *FakeTwilio
}

// Option adjusts the configuration before the app is built.
type Option func(*config.Config)

// WithBackend selects the notification backend.
func WithBackend(backend string) Option {
	return func(cfg *config.Config) { cfg.Notifications.Backend = backend }
}

// WithDiagnosticKey enables the diagnostic endpoint.
func WithDiagnosticKey(key string) Option {
	return func(cfg *config.Config) { cfg.Diagnostics.Key = key }
}

// WithConfig applies an arbitrary change.
func WithConfig(fn func(*config.Config)) Option {
	return Option(fn)
}

// New starts a server backed by a fake Twilio endpoint, so acknowledgements
// are captured instead of sent.
func New(t *testing.T, opts ...Option) *TestServer {
	t.Helper()

	twilio := NewFakeTwilio(t)

	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.RateLimit.Enabled = false
	cfg.WhatsApp.AccountSID = FakeAccountSID
	cfg.WhatsApp.AuthToken = "test-token"
	cfg.WhatsApp.From = "+14155238886"
	cfg.WhatsApp.BaseURL = twilio.URL()
	cfg.WhatsApp.Retries = 0
	cfg.WhatsApp.Timeout = 2 * time.Second
	for _, opt := range opts {
		opt(&cfg)
	}
	require.NoError(t, cfg.Validate())

	app, err := bootstrap.New(cfg, nil)
	require.NoError(t, err)

	handler, err := app.Handler()
	require.NoError(t, err)
	server := httptest.NewServer(handler)

	ts := &TestServer{
		Server: server,
		App:    app,
		Root:   cfg.Storage.Root,
		Twilio: twilio,
	}

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(ctx)
	})

	return ts
}

// URL joins path onto the server address.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// WaitForAcknowledgements blocks until background sends have finished.
func (ts *TestServer) WaitForAcknowledgements(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.App.Dispatcher.Wait(ctx))
}

// FakeAccountSID is the account the fake Twilio endpoint accepts.
const FakeAccountSID = "ACtest"

// Message is one request received by FakeTwilio.
type Message struct {
	From string
	To   string
	Body string
}

// FakeTwilio records Messages API calls and answers with a message SID.
type FakeTwilio struct {
	server *httptest.Server

	mu       sync.Mutex
	messages []Message
	fail     bool
}

// NewFakeTwilio starts the fake endpoint; it is closed when the test ends.
func NewFakeTwilio(t *testing.T) *FakeTwilio {
	t.Helper()
	f := &FakeTwilio{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to configure as whatsapp.base_url.
func (f *FakeTwilio) URL() string {
	return f.server.URL
}

// FailRequests makes subsequent calls answer with a provider error.
func (f *FakeTwilio) FailRequests(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// Messages returns the messages received so far.
func (f *FakeTwilio) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *FakeTwilio) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path != "/2010-04-01/Accounts/"+FakeAccountSID+"/Messages.json" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 20404, "message": "not found"})
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 63007, "message": "channel not found"})
		return
	}
	f.messages = append(f.messages, Message{
		From: strings.TrimPrefix(r.PostForm.Get("From"), "whatsapp:"),
		To:   strings.TrimPrefix(r.PostForm.Get("To"), "whatsapp:"),
		Body: r.PostForm.Get("Body"),
	})
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"sid": "SM" + strings.Repeat("0", 31), "status": "queued"})
}
