package booking

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("booking not found")
	ErrNotAvailable      = errors.New("no slots available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPastDate          = errors.New("date is in the past")
	ErrForbidden         = errors.New("operation not allowed for this user")
	ErrAmountMismatch    = errors.New("item totals do not match base amount")
)
