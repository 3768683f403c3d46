package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+14155238886",
		BaseURL:    baseURL,
	}
}

func TestConfig_Configured(t *testing.T) {
	require.True(t, testConfig("").Configured())
	require.False(t, Config{AccountSID: "AC123", AuthToken: "secret"}.Configured())
	require.False(t, Config{}.Configured())
}

func TestNew_WithoutCredentialsIsDisabled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	sender := New(Config{BaseURL: server.URL, AccountSID: "AC123"}, nil)
	for _, to := range []string{"", "9999999999", "+19876543210", "garbage"} {
		res := sender.Send(context.Background(), to, "hello")
		require.Equal(t, Result{Delivered: false, Detail: DetailNotConfigured}, res)
	}
	require.Equal(t, int32(0), hits.Load())
}

func TestClient_SendSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "AC123", user)
		require.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		require.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		require.Equal(t, "whatsapp:+919876543210", r.PostForm.Get("To"))
		require.Equal(t, "report received", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM42", "status": "queued"})
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	res := client.Send(context.Background(), "09876543210", "report received")
	require.Equal(t, Result{Delivered: true, Detail: "SM42"}, res)
}

func TestClient_SendProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    21211,
			"message": "The 'To' number is not a valid phone number.",
			"status":  400,
		})
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	res := client.Send(context.Background(), "12", "hi")
	require.False(t, res.Delivered)
	require.Contains(t, res.Detail, "not a valid phone number")
	require.Contains(t, res.Detail, "21211")
}

func TestClient_SendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(testConfig(url), nil)
	res := client.Send(context.Background(), "9999999999", "hi")
	require.False(t, res.Delivered)
	require.NotEmpty(t, res.Detail)
}

func TestClient_SendHonoursCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewClient(testConfig(server.URL), nil).Send(ctx, "9999999999", "hi")
	require.False(t, res.Delivered)
}
