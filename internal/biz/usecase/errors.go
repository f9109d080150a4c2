package usecase

import "errors"

// Trigger rejection errors. AccessDenied and UnknownMessage are dropped
// silently (no user-visible effect); the others carry a private notice
// to the requester.
var (
	ErrAccessDenied   = errors.New("access denied")
	ErrUnknownMessage = errors.New("message not found in any buffer")
	ErrDuplicate      = errors.New("reaction already processed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrEmptyContext   = errors.New("no context messages available")
)
