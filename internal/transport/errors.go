package transport

import (
	"errors"
	"net/http"

	"github.com/rpggio/kinboard/internal/domain/missing"
	"github.com/rpggio/kinboard/internal/domain/phone"
	"github.com/rpggio/kinboard/internal/domain/registration"
)

// Flash messages for submission outcomes.
const (
	msgRegistered      = "Registration submitted successfully."
	msgReported        = "Missing person report submitted."
	msgGeneric         = "Something went wrong. Please try again."
	msgTooLarge        = "The upload is too large."
	msgInvalidPhone    = "Please enter a valid phone number."
	msgPhotoRequired   = "Please attach at least one photo (jpg, jpeg, png or webp)."
	msgRegisterFields  = "Mobile and WhatsApp numbers are required."
	msgReportFields    = "Reporter Phone and WhatsApp are required."
	msgLanguageInvalid = "Please choose a language from the list."
	msgLanguageSaved   = "Language preference saved."
	msgRateLimited     = "Too many submissions. Please wait a minute and try again."
)

// MapError converts a submission error into the message shown to the user.
// Unknown errors map to a generic message.
func MapError(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &tooLarge):
		return msgTooLarge
	case errors.Is(err, registration.ErrMissingFields):
		return msgRegisterFields
	case errors.Is(err, missing.ErrMissingFields):
		return msgReportFields
	case errors.Is(err, phone.ErrInvalid):
		return msgInvalidPhone
	case errors.Is(err, missing.ErrPhotoRequired):
		return msgPhotoRequired
	default:
		return msgGeneric
	}
}

func isUserError(err error) bool {
	return MapError(err) != msgGeneric
}
