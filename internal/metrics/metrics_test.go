package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("/items/{id}", "GET", "418")))
}

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveUploads("missing", 3, 2)
	m.ObserveNotification("missing")
	m.ObserveWhatsApp(true, "SM1")
	m.ObserveWhatsApp(false, "not configured")
	m.ObserveWhatsApp(false, "timeout")

	require.Equal(t, 2.0, testutil.ToFloat64(m.UploadsSaved.WithLabelValues("missing")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.UploadsSkipped.WithLabelValues("missing")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("missing")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WhatsAppMessages.WithLabelValues("disabled")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WhatsAppMessages.WithLabelValues("failed")))

	var nilMetrics *Metrics
	nilMetrics.ObserveUploads("missing", 1, 1)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.RateLimited.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "kinboard_rate_limited_total 1"))
}
