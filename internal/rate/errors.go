package rate

import "errors"

var (
	// ErrRateLimited is returned when a login or client IP exhausted its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
