package registration

import (
	"errors"
	"fmt"

	"github.com/rpggio/kinboard/internal/domain/phone"
)

var (
	// ErrMissingFields indicates the mobile or WhatsApp number was empty.
	ErrMissingFields = errors.New("mobile and whatsapp numbers are required")
	// ErrInvalidPhone indicates the mobile number cannot be used as a folder key.
	ErrInvalidPhone = fmt.Errorf("registration: %w", phone.ErrInvalid)
)
