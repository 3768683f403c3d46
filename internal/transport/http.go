package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/registration"
	"github.com/rpggio/kinboard/internal/metrics"
	"github.com/rpggio/kinboard/internal/whatsapp"
)

// Registrar handles registration submissions.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (*registration.Result, error)
}

// MissingReporter handles missing-person reports.
type MissingReporter interface {
	Report(ctx context.Context, req missing.Request) (*missing.Result, error)
}

// NotificationLister reads the notification log newest-first.
type NotificationLister interface {
	ListNewestFirst(ctx context.Context) ([]notification.Entry, error)
}

// Services are the use cases exposed over HTTP.
type Services struct {
	Registrations Registrar
	Missing       MissingReporter
	Notifications NotificationLister
	// WhatsApp is called synchronously by the diagnostic endpoint.
	WhatsApp whatsapp.Sender
}

// Config wires the HTTP server.
type Config struct {
	Services             Services
	Metrics              *metrics.Metrics
	Logger               *slog.Logger
	MaxRequestBytes      int64
	MissingRequiresPhoto bool
	DiagnosticKey        KeyMatcher
	// RateLimiter guards submission endpoints; nil disables limiting.
	RateLimiter *RateLimiter
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Server holds HTTP handlers.
type Server struct {
	services  Services
	metrics   *metrics.Metrics
	logger    *slog.Logger
	pages     *renderer
	limiter   *RateLimiter
	maxBytes  int64
	photoReq  bool
	diagnosis KeyMatcher
}

// NewServer creates an HTTP router with middleware. It fails only if the
// embedded templates do not parse.
func NewServer(cfg Config) (*chi.Mux, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{
		services:  cfg.Services,
		metrics:   cfg.Metrics,
		logger:    logger,
		pages:     pages,
		limiter:   cfg.RateLimiter,
		maxBytes:  cfg.MaxRequestBytes,
		photoReq:  cfg.MissingRequiresPhoto,
		diagnosis: cfg.DiagnosticKey,
	}
	if srv.services.WhatsApp == nil {
		srv.services.WhatsApp = whatsapp.Disabled{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogging(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(FlashMiddleware)
	r.Use(LanguageMiddleware)

	r.Get("/", srv.handleRegisterPage)
	r.Get("/report", srv.handleReportPage)
	r.Get("/notifications", srv.handleNotifications)
	r.Get("/api/notifications", srv.handleNotificationsAPI)
	r.Get("/language", srv.handleLanguagePage)
	r.Post("/language", srv.handleLanguageSubmit)
	r.Get("/health", srv.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(srv.rateLimit)
		r.With(srv.recoverToFlash("/")).Post("/register", srv.handleRegister)
		r.With(srv.recoverToFlash("/report")).Post("/report_missing", srv.handleReportMissing)
		r.With(DiagnosticAuth(srv.diagnosis)).Post("/diagnostics/whatsapp", srv.handleDiagnosticWhatsApp)
	})

	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// rateLimit rejects clients that exhausted their token bucket.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
			s.logger.Warn("rate limited", "ip", clientIP(r), "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, msgRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverToFlash turns a panic in a submission handler into a generic flash
// message and a redirect back to the form.
func (s *Server) recoverToFlash(to string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("submission handler panic", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "panic", rec)
				redirectWithFlash(w, r, to, FlashError, msgGeneric)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogging logs each request at debug level.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http traffic",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
