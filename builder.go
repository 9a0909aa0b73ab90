package storeauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/musicsupplies/storeauth/internal/rate"
	"github.com/musicsupplies/storeauth/internal/stores"
	"github.com/musicsupplies/storeauth/session"
	"github.com/musicsupplies/storeauth/token"
)

// Builder assembles an [Engine]. Configure it with the With* methods and call
// Build exactly once.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	credentials     CredentialStore
	smsDispatcher   SMSDispatcher
	auditSink       AuditSink
	sessionStorage  session.Storage
	sessionClock    session.Clock
	activityMonitor session.ActivityMonitor

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the two-factor challenge store and
// the login throttle.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the account and legacy-secret lookup backend.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithSMSDispatcher sets the two-factor code delivery channel.
func (b *Builder) WithSMSDispatcher(d SMSDispatcher) *Builder {
	b.smsDispatcher = d
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionStorage sets the persistence surface sessions are written
// through. Defaults to in-memory storage.
func (b *Builder) WithSessionStorage(storage session.Storage) *Builder {
	b.sessionStorage = storage
	return b
}

// WithSessionClock overrides the session clock, for tests.
func (b *Builder) WithSessionClock(clock session.Clock) *Builder {
	b.sessionClock = clock
	return b
}

// WithActivityMonitor sets the host activity source driving the idle window.
func (b *Builder) WithActivityMonitor(m session.ActivityMonitor) *Builder {
	b.activityMonitor = m
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles login latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every subsystem, and returns the
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	if b.redis == nil {
		if cfg.TwoFactor.Enabled {
			return nil, errors.New("two-factor requires redis client")
		}
		if cfg.Security.EnableLoginThrottle {
			return nil, errors.New("login throttle requires redis client")
		}
	}

	if cfg.TwoFactor.Enabled && b.smsDispatcher == nil {
		return nil, errors.New("two-factor requires an SMS dispatcher")
	}

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		detector:    newDeactivationDetector(cfg.Deactivation),
		noticeShown: make(map[string]struct{}),
	}

	engine.sessions = session.NewManager(session.Config{
		AbsoluteTTL:     cfg.Session.AbsoluteTTL,
		IdleTimeout:     cfg.Session.IdleTimeout,
		StorageKey:      cfg.Session.StorageKey,
		ScopedCacheKeys: cloneStrings(cfg.Session.ScopedCacheKeys),
	}, b.sessionClock, b.sessionStorage)

	if b.activityMonitor != nil {
		engine.activityMonitor = b.activityMonitor
		engine.activityMonitor.Start(engine.sessions.ActivityPulse)
	}

	if cfg.TwoFactor.Enabled {
		engine.twoFactorStore = stores.NewTwoFactorStore(b.redis, cfg.TwoFactor.RedisPrefix)
		engine.smsDispatcher = b.smsDispatcher
	}

	if cfg.Security.EnableLoginThrottle && b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
		})
	}

	if cfg.Scope.Enabled {
		ttl := cfg.Scope.TTL
		if ttl <= 0 {
			ttl = cfg.Session.AbsoluteTTL
		}
		tm, err := token.NewManager(token.Config{
			TTL:           ttl,
			SigningMethod: token.SigningMethod(cfg.Scope.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Scope.PrivateKey),
			PublicKey:     cloneBytes(cfg.Scope.PublicKey),
			Issuer:        cfg.Scope.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.scopeTokens = tm
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.sessions.OnExpired(engine.noteSessionExpired)

	b.built = true

	return engine, nil
}
