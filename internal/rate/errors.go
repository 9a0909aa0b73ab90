package rate

import "errors"

var (
	// ErrRateLimited is returned when an identifier exceeds its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when the counter backend cannot be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
