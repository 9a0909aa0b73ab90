package internaldefs

import (
	storeauth "github.com/musicsupplies/storeauth"
)

// CounterDef binds a core MetricID to its stable exported name.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram MetricID to its stable exported name.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: storeauth.MetricLoginSuccess, Name: "storeauth_login_success_total", Help: "Successful login attempts."},
	{ID: storeauth.MetricLoginFailure, Name: "storeauth_login_failure_total", Help: "Failed login attempts."},
	{ID: storeauth.MetricLoginRateLimited, Name: "storeauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: storeauth.MetricInvalidIdentifier, Name: "storeauth_invalid_identifier_total", Help: "Login attempts with malformed identifiers."},
	{ID: storeauth.MetricDeactivatedNotice, Name: "storeauth_deactivated_notice_total", Help: "Deactivation notices shown."},
	{ID: storeauth.MetricTwoFactorIssued, Name: "storeauth_two_factor_issued_total", Help: "Two-factor challenges issued."},
	{ID: storeauth.MetricTwoFactorSuccess, Name: "storeauth_two_factor_success_total", Help: "Successful two-factor confirmations."},
	{ID: storeauth.MetricTwoFactorFailure, Name: "storeauth_two_factor_failure_total", Help: "Failed two-factor confirmations."},
	{ID: storeauth.MetricTwoFactorExpired, Name: "storeauth_two_factor_expired_total", Help: "Two-factor confirmations against an expired challenge."},
	{ID: storeauth.MetricTwoFactorAttemptsExceeded, Name: "storeauth_two_factor_attempts_exceeded_total", Help: "Two-factor challenges invalidated due to attempt cap."},
	{ID: storeauth.MetricTwoFactorReplayAttempt, Name: "storeauth_two_factor_replay_attempt_total", Help: "Detected two-factor replay attempts."},
	{ID: storeauth.MetricTwoFactorDeliveryFailure, Name: "storeauth_two_factor_delivery_failure_total", Help: "Failed two-factor code deliveries."},
	{ID: storeauth.MetricSessionCreated, Name: "storeauth_session_created_total", Help: "Created sessions."},
	{ID: storeauth.MetricSessionExpired, Name: "storeauth_session_expired_total", Help: "Sessions ended by idle or absolute expiry."},
	{ID: storeauth.MetricLogout, Name: "storeauth_logout_total", Help: "Explicit logout operations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: storeauth.MetricLoginLatency, Name: "storeauth_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a raw bucket slice into the fixed 8-slot layout.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
