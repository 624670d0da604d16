package rate

import "errors"

var (
	// ErrRateLimited reports that the caller exhausted its login window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps throttle backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
