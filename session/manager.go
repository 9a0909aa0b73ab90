package session

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrStaleGeneration is returned by Create when the session store was cleared
// (or expired) between the time the caller sampled the generation and the
// write. The caller must restart authentication rather than retry the write.
var ErrStaleGeneration = errors.New("session: stale generation")

const (
	defaultAbsoluteTTL = 8 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	defaultStorageKey  = "storeauth_session"
)

// Config carries the session lifetime policy.
type Config struct {
	// AbsoluteTTL is the hard lifetime of a session measured from creation.
	// Activity never extends it.
	AbsoluteTTL time.Duration
	// IdleTimeout is the sliding inactivity window. Each activity pulse
	// resets it.
	IdleTimeout time.Duration
	// StorageKey is the key the session record is persisted under.
	StorageKey string
	// ScopedCacheKeys are additional storage keys removed whenever the
	// session is cleared (caller-scoped caches such as a cart). Unrelated
	// keys are never touched.
	ScopedCacheKeys []string
}

func (c Config) withDefaults() Config {
	if c.AbsoluteTTL <= 0 {
		c.AbsoluteTTL = defaultAbsoluteTTL
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.StorageKey == "" {
		c.StorageKey = defaultStorageKey
	}
	return c
}

// Manager owns the single session of one host instance.
type Manager struct {
	cfg     Config
	clock   Clock
	storage Storage

	mu         sync.Mutex
	generation uint64
	live       bool
	expiresAt  time.Time
	idleTimer  Timer
	absTimer   Timer
	onExpired  func()
}

// NewManager builds a Manager with the given policy. A nil clock falls back
// to [SystemClock], a nil storage to [NewMemoryStorage].
func NewManager(cfg Config, clock Clock, storage Storage) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Manager{cfg: cfg.withDefaults(), clock: clock, storage: storage}
}

// OnExpired registers the callback invoked when a live session expires, idle
// or absolute. It fires at most once per session, after the store is cleared,
// and never for sessions ended by an explicit Clear.
func (m *Manager) OnExpired(fn func()) {
	m.mu.Lock()
	m.onExpired = fn
	m.mu.Unlock()
}

// Generation returns the current generation token. Sample it before starting
// a credential flow and pass it to Create; the write fails if the store was
// cleared in between.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Create installs a new session for user, replacing any existing one. The
// absolute expiry is fixed at now + AbsoluteTTL and idle monitoring starts
// immediately. gen must be the generation sampled at the start of the
// authentication flow.
func (m *Manager) Create(user User, gen uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return ErrStaleGeneration
	}
	m.stopTimersLocked()
	now := m.clock.Now()
	exp := now.Add(m.cfg.AbsoluteTTL)
	m.persistLocked(record{
		User:           user,
		IssuedAt:       now.UnixMilli(),
		ExpiresAt:      exp.UnixMilli(),
		LastActivityAt: now.UnixMilli(),
	})
	m.live = true
	m.expiresAt = exp
	m.armTimersLocked(m.cfg.AbsoluteTTL)
	return nil
}

// Read returns the current session user, or nil when there is none. A manager
// that was not the creator of the persisted record (a fresh instance over
// existing storage) adopts the record if it has not yet reached its absolute
// expiry. Reading refreshes the recorded last-activity timestamp but never
// moves the absolute expiry.
func (m *Manager) Read() *User {
	m.mu.Lock()
	now := m.clock.Now()

	if !m.live {
		rec, ok := m.loadLocked()
		if !ok {
			m.mu.Unlock()
			return nil
		}
		exp := time.UnixMilli(rec.ExpiresAt)
		if !now.Before(exp) {
			// Dead on arrival: clear silently, nothing was live here.
			m.clearLocked()
			m.mu.Unlock()
			return nil
		}
		m.live = true
		m.expiresAt = exp
		m.armTimersLocked(exp.Sub(now))
		rec.LastActivityAt = now.UnixMilli()
		m.persistLocked(rec)
		u := rec.User
		m.mu.Unlock()
		return &u
	}

	if !now.Before(m.expiresAt) {
		cb := m.onExpired
		m.clearLocked()
		m.mu.Unlock()
		if cb != nil {
			cb()
		}
		return nil
	}

	rec, ok := m.loadLocked()
	if !ok {
		// The record vanished underneath us; treat it as a clear.
		m.clearLocked()
		m.mu.Unlock()
		return nil
	}
	rec.LastActivityAt = now.UnixMilli()
	m.persistLocked(rec)
	u := rec.User
	m.mu.Unlock()
	return &u
}

// ActivityPulse resets the idle window. Pulses against a dead session are
// ignored; they never resurrect it.
func (m *Manager) ActivityPulse() {
	m.mu.Lock()
	if m.live && m.idleTimer != nil {
		m.idleTimer.Reset(m.cfg.IdleTimeout)
	}
	m.mu.Unlock()
}

// Clear ends the session and removes the session record plus every scoped
// cache key from storage. It is idempotent and does not invoke the expiration
// callback.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
}

// expire is the timer path. gen pins the session the timer was armed for so a
// late fire against a newer session is a no-op.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if !m.live || gen != m.generation {
		m.mu.Unlock()
		return
	}
	cb := m.onExpired
	m.clearLocked()
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (m *Manager) armTimersLocked(absoluteIn time.Duration) {
	gen := m.generation
	idle := m.cfg.IdleTimeout
	if idle > absoluteIn {
		idle = absoluteIn
	}
	m.idleTimer = m.clock.AfterFunc(idle, func() { m.expire(gen) })
	m.absTimer = m.clock.AfterFunc(absoluteIn, func() { m.expire(gen) })
}

func (m *Manager) stopTimersLocked() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	if m.absTimer != nil {
		m.absTimer.Stop()
		m.absTimer = nil
	}
}

func (m *Manager) clearLocked() {
	m.stopTimersLocked()
	if err := m.storage.Delete(m.cfg.StorageKey); err != nil {
		log.Print("session: delete record failed: ", err)
	}
	for _, key := range m.cfg.ScopedCacheKeys {
		if err := m.storage.Delete(key); err != nil {
			log.Print("session: delete scoped key failed: ", err)
		}
	}
	m.live = false
	m.generation++
}

func (m *Manager) loadLocked() (record, bool) {
	raw, ok := m.storage.Get(m.cfg.StorageKey)
	if !ok {
		return record{}, false
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Print("session: corrupt record dropped: ", err)
		if derr := m.storage.Delete(m.cfg.StorageKey); derr != nil {
			log.Print("session: delete record failed: ", derr)
		}
		return record{}, false
	}
	return rec, true
}

func (m *Manager) persistLocked(rec record) {
	data, err := json.Marshal(rec)
	if err != nil {
		log.Print("session: encode record failed: ", err)
		return
	}
	if err := m.storage.Set(m.cfg.StorageKey, string(data)); err != nil {
		log.Print("session: persist record failed: ", err)
	}
}
