// Package storeauth implements the authentication and session-lifecycle engine for
// the wholesale storefront: layered credential verification (including legacy
// default-secret derivation and the deactivated-account pattern), the SMS
// two-factor challenge flow gating the privileged account, and a per-instance
// session manager with sliding idle timeout and absolute expiry.
//
// The package is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (LoginResult, MetricsSnapshot, audit sinks). Challenge persistence,
// rate limiting, and audit dispatch live under internal/ and are never exported.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build]. Login and ConfirmTwoFactor perform at most a handful of
// credential-store and Redis round-trips; audit emission is asynchronous and never
// blocks an authentication decision.
//
// # What this package must NOT do
//
//   - Expose Redis clients, challenge stores, or record encodings in its public API.
//   - Persist or log plaintext secrets beyond the duration of a verification call.
//   - Surface which credential-comparison rule failed; all mismatches are uniform.
package storeauth
