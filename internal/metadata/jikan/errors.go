package jikan

import "errors"

// Sentinel errors for Jikan API operations.
var (
	ErrNotFound    = errors.New("jikan: not found")
	ErrRateLimited = errors.New("jikan: rate limited by server")
	ErrServer      = errors.New("jikan: server error")
)
