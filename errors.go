package storeauth

import "errors"

var (
	// ErrEngineNotReady is returned when a required collaborator was not wired
	// through the [Builder].
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidIdentifier is returned for empty or malformed login handles.
	// Recoverable: the caller should re-prompt.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidCredentials is the uniform failure for account-not-found and
	// secret-mismatch. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when the identifier has exceeded the
	// failed-attempt budget for the cooldown window.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrTwoFactorInvalid covers a missing challenge or a code mismatch.
	// Recoverable: retry is allowed until the attempt bound is reached.
	ErrTwoFactorInvalid = errors.New("two-factor code invalid")
	// ErrTwoFactorExpired means the challenge TTL elapsed; the login must restart.
	ErrTwoFactorExpired = errors.New("two-factor challenge expired")
	// ErrTwoFactorAttemptsExceeded means the attempt bound was reached; the
	// challenge is destroyed and the login must restart.
	ErrTwoFactorAttemptsExceeded = errors.New("two-factor attempts exceeded")
	// ErrTwoFactorReplay means a consumed code was submitted again.
	ErrTwoFactorReplay = errors.New("two-factor replay detected")
	// ErrTwoFactorUnavailable means the challenge backend could not be reached.
	ErrTwoFactorUnavailable = errors.New("two-factor backend unavailable")
	// ErrSessionExpired is returned when establishing a session lost the race
	// against a logout or expiry that fired first.
	ErrSessionExpired = errors.New("session expired")
)
