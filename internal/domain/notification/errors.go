package notification

import "errors"

// ErrInvalidInput indicates an entry that cannot be recorded.
var ErrInvalidInput = errors.New("invalid notification entry")
