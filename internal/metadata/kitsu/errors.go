package kitsu

import "errors"

// Sentinel errors for Kitsu API operations.
var (
	ErrNotFound    = errors.New("kitsu: not found")
	ErrRateLimited = errors.New("kitsu: rate limited by server")
	ErrServer      = errors.New("kitsu: server error")
)
