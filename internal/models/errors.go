package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrForbidden     = errors.New("forbidden")
	ErrAuthRequired  = errors.New("authentication required")
	ErrNotConfigured = errors.New("not configured")
)
