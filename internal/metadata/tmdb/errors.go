package tmdb

import "errors"

// Sentinel errors for TMDB API operations.
var (
	ErrNoAPIKey     = errors.New("tmdb: no API key configured")
	ErrUnauthorized = errors.New("tmdb: API key rejected")
	ErrNotFound     = errors.New("tmdb: not found")
	ErrRateLimited  = errors.New("tmdb: rate limited by server")
	ErrServer       = errors.New("tmdb: server error")
)
