package storeauth

import (
	"context"
	"sync"

	"github.com/musicsupplies/storeauth/internal/rate"
	"github.com/musicsupplies/storeauth/internal/stores"
	"github.com/musicsupplies/storeauth/session"
	"github.com/musicsupplies/storeauth/token"
)

// Engine is the authentication orchestrator. Build one through [New] and its
// fluent With* methods; a built Engine is safe for concurrent use.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config          Config
	credentials     CredentialStore
	detector        *deactivationDetector
	twoFactorStore  *stores.TwoFactorStore
	smsDispatcher   SMSDispatcher
	rateLimiter     *rate.Limiter
	sessions        *session.Manager
	activityMonitor session.ActivityMonitor
	scopeTokens     *token.Manager
	audit           *auditDispatcher
	metrics         *Metrics

	// noticeMu guards noticeShown, the per-engine set of identifiers that
	// already saw the deactivation notice.
	noticeMu    sync.Mutex
	noticeShown map[string]struct{}
}

// Close flushes the audit buffer and detaches the activity monitor. The
// engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.activityMonitor != nil {
		e.activityMonitor.Stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CurrentSession returns the active session user, or nil when no session is
// live. Reading refreshes the last-activity bookkeeping but never extends the
// absolute lifetime.
func (e *Engine) CurrentSession() *session.User {
	if e == nil || e.sessions == nil {
		return nil
	}
	return e.sessions.Read()
}

// ActivityPulse forwards a host activity event to the session store, resetting
// the idle window of a live session.
func (e *Engine) ActivityPulse() {
	if e == nil || e.sessions == nil {
		return
	}
	e.sessions.ActivityPulse()
}

// OnSessionExpired registers the callback invoked when the live session
// expires, whether idle or absolute. Explicit Logout does not trigger it.
func (e *Engine) OnSessionExpired(fn func()) {
	if e == nil || e.sessions == nil {
		return
	}
	e.sessions.OnExpired(func() {
		e.noteSessionExpired()
		if fn != nil {
			fn()
		}
	})
}

func (e *Engine) noteSessionExpired() {
	e.metricInc(MetricSessionExpired)
	e.emitAudit(context.Background(), auditEventSessionExpired, false, "", 0, "", nil, nil)
}

// noticeAlreadyShown reports whether the deactivation notice was already
// presented for identifier, marking it shown on first sight.
func (e *Engine) noticeAlreadyShown(identifier string) bool {
	e.noticeMu.Lock()
	defer e.noticeMu.Unlock()
	if _, ok := e.noticeShown[identifier]; ok {
		return true
	}
	e.noticeShown[identifier] = struct{}{}
	return false
}
