package models

import "errors"

var (
	// Validation
	ErrQueryTooShort    = errors.New("search query must be at least 2 characters")
	ErrInvalidWaiver    = errors.New("missing required fields")
	ErrInvalidID        = errors.New("invalid id")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrMissingLogin     = errors.New("username and password are required")
	ErrSelfDelete       = errors.New("you cannot delete your own account")
	ErrInvalidImport    = errors.New("invalid import file")

	// Auth
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Lookup / conflicts
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")

	// Integrity
	ErrCacheCorrupt = errors.New("cached suggestion payload is corrupt")
)
