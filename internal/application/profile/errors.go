package profile

import "errors"

var (
	ErrMalformedFile         = errors.New("malformed import file")
	ErrOperationCancelled    = errors.New("operation cancelled")
	ErrNothingToReport       = errors.New("nothing to download")
	ErrSessionNotFound       = errors.New("import session not found")
	ErrSessionAlreadyApplied = errors.New("import session already applied")
	ErrSessionNotApplied     = errors.New("import session not applied")
	ErrInvalidProfileID      = errors.New("invalid profile id")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrGetProfileByID        = errors.New("failed to get profile by id")
	ErrExportProfiles        = errors.New("failed to export profiles")
)
