package directory

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateEmail   = errors.New("email already in use in this clinic")
	ErrDuplicateLicense = errors.New("license number already registered in this clinic")
	ErrAlreadyInactive  = errors.New("record is already inactive")
	ErrAlreadyActive    = errors.New("record is already active")
)
