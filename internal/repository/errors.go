package repository

import "errors"

// ErrInvalidInput is returned when a store rejects an entry
var ErrInvalidInput = errors.New("invalid input")
