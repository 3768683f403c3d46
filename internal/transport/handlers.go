package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/notification"
	"github.com/rpggio/kinboard/internal/domain/registration"
)

// Upload kinds used as metric labels.
const (
	uploadRegistration = "registration"
	uploadMissing      = "missing"
)

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, pageData{Title: "Register", Active: pageRegister})
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, pageData{Title: "Report missing", Active: pageReport, PhotoRequired: s.photoReq})
}

func (s *Server) handleLanguagePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, pageData{Title: "Language", Active: pageLanguage, Languages: Languages()})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, data pageData) {
	if err := s.pages.render(w, r, http.StatusOK, data); err != nil {
		s.logger.Error("render failed", "page", data.Active, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, s.maxBytes); err != nil {
		s.logger.Warn("registration form rejected", "error", err)
		redirectWithFlash(w, r, "/", FlashError, MapError(err))
		return
	}
	defer cleanupForm(r)

	photos := formFiles(r, "reg_photos[]", "reg_photos")
	family := formFiles(r, "family_photos[]", "family_photos")
	res, err := s.services.Registrations.Register(r.Context(), registration.Request{
		Phone:        formValue(r, "mobile_no"),
		WhatsApp:     formValue(r, "whatsapp_no"),
		Secondary:    formValue(r, "secondary_no"),
		Photos:       photos,
		FamilyPhotos: family,
		PortalURL:    portalURL(r),
	})
	if res != nil {
		s.metrics.ObserveUploads(uploadRegistration, len(photos)+len(family), len(res.Photos)+len(res.FamilyPhotos))
	}
	if err != nil {
		s.logSubmissionError(r, "registration", err)
		redirectWithFlash(w, r, "/", FlashError, MapError(err))
		return
	}
	redirectWithFlash(w, r, "/", FlashSuccess, msgRegistered)
}

func (s *Server) handleReportMissing(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, s.maxBytes); err != nil {
		s.logger.Warn("missing report form rejected", "error", err)
		redirectWithFlash(w, r, "/report", FlashError, MapError(err))
		return
	}
	defer cleanupForm(r)

	photos := formFiles(r, "missing_photos[]", "missing_photos")
	res, err := s.services.Missing.Report(r.Context(), missing.Request{
		Phone:       formValue(r, "reporter_phone"),
		WhatsApp:    formValue(r, "reporter_whatsapp"),
		Description: formValue(r, "description"),
		Photos:      photos,
	})
	if res != nil {
		s.metrics.ObserveUploads(uploadMissing, len(photos), len(res.Photos))
	}
	if err != nil {
		s.logSubmissionError(r, "missing report", err)
		redirectWithFlash(w, r, "/report", FlashError, MapError(err))
		return
	}
	redirectWithFlash(w, r, "/report", FlashSuccess, msgReported)
}

func (s *Server) logSubmissionError(r *http.Request, what string, err error) {
	if isUserError(err) {
		s.logger.Info(what+" rejected", "reason", err, "request_id", middleware.GetReqID(r.Context()))
		return
	}
	s.logger.Error(what+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
}

func (s *Server) listNotifications(r *http.Request) []notification.Entry {
	entries, err := s.services.Notifications.ListNewestFirst(r.Context())
	if err != nil {
		s.logger.Error("listing notifications failed", "error", err)
		return []notification.Entry{}
	}
	if entries == nil {
		entries = []notification.Entry{}
	}
	return entries
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	entries := s.listNotifications(r)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	s.renderPage(w, r, pageData{Title: "Notifications", Active: pageNotifications, Entries: entries})
}

func (s *Server) handleNotificationsAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listNotifications(r))
}

func (s *Server) handleLanguageSubmit(w http.ResponseWriter, r *http.Request) {
	raw := formValue(r, "lang")
	if raw == "" {
		raw = defaultLanguage
	}
	code, ok := ParseLanguage(raw)
	if !ok {
		redirectWithFlash(w, r, "/language", FlashError, msgLanguageInvalid)
		return
	}
	setLanguageCookie(w, code)
	redirectWithFlash(w, r, "/", FlashSuccess, msgLanguageSaved)
}

// DiagnosticResponse reports a synchronous WhatsApp send.
type DiagnosticResponse struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
}

func (s *Server) handleDiagnosticWhatsApp(w http.ResponseWriter, r *http.Request) {
	to := formValue(r, "to")
	if to == "" {
		writeJSONError(w, http.StatusBadRequest, "missing destination number")
		return
	}
	res := s.services.WhatsApp.Send(r.Context(), to, "Kinboard diagnostic message.")
	s.metrics.ObserveWhatsApp(res.Delivered, res.Detail)
	s.logger.Info("diagnostic whatsapp send", "delivered", res.Delivered, "detail", res.Detail)
	writeJSON(w, http.StatusOK, DiagnosticResponse{Delivered: res.Delivered, Detail: res.Detail})
}
