package profile

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEntityNotFound  = errors.New("entity not found")
)
