package missing

import (
	"errors"
	"fmt"

	"github.com/rpggio/kinboard/internal/domain/phone"
)

var (
	// ErrMissingFields indicates the reporter phone or WhatsApp number was empty.
	ErrMissingFields = errors.New("reporter phone and whatsapp are required")
	// ErrInvalidPhone indicates the reporter phone cannot be used as a folder key.
	ErrInvalidPhone = fmt.Errorf("missing report: %w", phone.ErrInvalid)
	// ErrPhotoRequired indicates no submitted file had an accepted extension.
	ErrPhotoRequired = errors.New("at least one photo is required")
)
