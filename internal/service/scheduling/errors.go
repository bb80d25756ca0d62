package scheduling

import "errors"

// Sentinel errors for the scheduling service layer.
var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrInvalidDay    = errors.New("invalid day, want YYYY-MM-DD")
	ErrInvalidMonth  = errors.New("invalid month, want YYYY-MM")
	ErrUnknownAction = errors.New("unknown action")
)
