package storeauth

import (
	"errors"
	"time"
)

// Config is the full engine configuration tree. Zero values are filled from
// [defaultConfig] by [New]; callers normally tweak individual fields through
// [Builder.WithConfig].
//
// Config instances are treated as immutable once the engine is built.
type Config struct {
	Identifier   IdentifierConfig
	Deactivation DeactivationConfig
	TwoFactor    TwoFactorConfig
	Session      SessionConfig
	Scope        ScopeConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
IDENTIFIER CONFIG
====================================
*/

// IdentifierConfig bounds the accepted login-handle shapes.
type IdentifierConfig struct {
	// MaxAccountNumberDigits caps the digits-only identifier length.
	// Wholesale account numbers have never exceeded 9 digits.
	MaxAccountNumberDigits int
}

/*
====================================
DEACTIVATION CONFIG
====================================
*/

// DeactivationConfig tunes the deactivated-account secret pattern.
type DeactivationConfig struct {
	// ExemptSecrets are literal secrets that must never be treated as a
	// deactivation marker even when they match the pattern. Matched
	// case-sensitively. Historically two operator-chosen values.
	ExemptSecrets []string
}

/*
====================================
TWO-FACTOR CONFIG
====================================
*/

// TwoFactorConfig tunes the SMS challenge flow for the privileged account.
type TwoFactorConfig struct {
	Enabled         bool
	CodeDigits      int
	ChallengeTTL    time.Duration
	MaxAttempts     int
	RedisPrefix     string
	DeliveryTimeout time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes the per-instance session manager.
type SessionConfig struct {
	AbsoluteTTL time.Duration
	IdleTimeout time.Duration
	// StorageKey is the key the session record is persisted under.
	StorageKey string
	// ScopedCacheKeys are removed together with the session record on clear,
	// e.g. the shopping cart tied to the account.
	ScopedCacheKeys []string
}

/*
====================================
SCOPE TOKEN CONFIG
====================================
*/

// ScopeConfig tunes the downstream authorization token minted after a
// successful authentication. When disabled, LoginResult.ScopeToken stays empty.
type ScopeConfig struct {
	Enabled       bool
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	// TTL defaults to Session.AbsoluteTTL when zero.
	TTL    time.Duration
	Issuer string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tunes failed-login throttling.
type SecurityConfig struct {
	EnableLoginThrottle bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the caller when the buffer
	// is saturated. Audit is best-effort: it must never stall a login.
	DropIfFull bool
}

// MetricsConfig tunes the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Identifier: IdentifierConfig{
			MaxAccountNumberDigits: 9,
		},
		TwoFactor: TwoFactorConfig{
			Enabled:         true,
			CodeDigits:      6,
			ChallengeTTL:    5 * time.Minute,
			MaxAttempts:     5,
			RedisPrefix:     "tfc",
			DeliveryTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			AbsoluteTTL:     8 * time.Hour,
			IdleTimeout:     30 * time.Minute,
			StorageKey:      "storeauth_session",
			ScopedCacheKeys: []string{"cart"},
		},
		Scope: ScopeConfig{
			Enabled:       false,
			SigningMethod: "hs256",
		},
		Security: SecurityConfig{
			EnableLoginThrottle: true,
			MaxLoginAttempts:    5,
			LoginCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks cross-field consistency. Called by [Builder.Build].
func (c *Config) Validate() error {
	if c.Identifier.MaxAccountNumberDigits <= 0 || c.Identifier.MaxAccountNumberDigits > 18 {
		return errors.New("Identifier MaxAccountNumberDigits must be in (0, 18]")
	}
	if c.TwoFactor.Enabled {
		if c.TwoFactor.CodeDigits < 4 || c.TwoFactor.CodeDigits > 10 {
			return errors.New("TwoFactor CodeDigits must be in [4, 10]")
		}
		if c.TwoFactor.ChallengeTTL <= 0 {
			return errors.New("TwoFactor ChallengeTTL must be positive")
		}
		if c.TwoFactor.MaxAttempts <= 0 {
			return errors.New("TwoFactor MaxAttempts must be positive")
		}
	}
	if c.Session.AbsoluteTTL <= 0 {
		return errors.New("Session AbsoluteTTL must be positive")
	}
	if c.Session.IdleTimeout <= 0 || c.Session.IdleTimeout > c.Session.AbsoluteTTL {
		return errors.New("Session IdleTimeout must be positive and not exceed AbsoluteTTL")
	}
	if c.Session.StorageKey == "" {
		return errors.New("Session StorageKey must not be empty")
	}
	if c.Scope.Enabled && len(c.Scope.PrivateKey) == 0 {
		return errors.New("Scope requires a signing key when enabled")
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be positive")
		}
		if c.Security.LoginCooldown <= 0 {
			return errors.New("Security LoginCooldown must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Deactivation.ExemptSecrets = cloneStrings(cfg.Deactivation.ExemptSecrets)
	out.Session.ScopedCacheKeys = cloneStrings(cfg.Session.ScopedCacheKeys)
	out.Scope.PrivateKey = cloneBytes(cfg.Scope.PrivateKey)
	out.Scope.PublicKey = cloneBytes(cfg.Scope.PublicKey)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
