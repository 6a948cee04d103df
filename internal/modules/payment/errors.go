package payment

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("payment not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotPayable       = errors.New("booking is not in a payable state")
	ErrNotSettled       = errors.New("no settled payment to refund")
	ErrAlreadyRefunded  = errors.New("payment already refunded")
	ErrAmountExceeds    = errors.New("refund amount exceeds amount paid")
	ErrForbidden        = errors.New("operation not allowed for this user")
)
