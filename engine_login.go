package storeauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/musicsupplies/storeauth/internal/rate"
	"github.com/musicsupplies/storeauth/session"
)

// Login authenticates one identifier/secret pair and, on success, installs a
// session. Three outcomes are not errors and come back inside LoginResult:
// a completed login, a deactivation notice, and a pending two-factor
// challenge. Every failure that involves the submitted credentials surfaces
// as [ErrInvalidCredentials]; callers cannot distinguish an unknown
// identifier from a wrong secret.
func (e *Engine) Login(ctx context.Context, rawIdentifier, secret string) (*LoginResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	// The generation is sampled before any slow work so a Clear that lands
	// mid-flight invalidates this login's session write.
	gen := e.sessions.Generation()

	ident, err := ResolveIdentifier(rawIdentifier, e.config.Identifier)
	if err != nil {
		e.metricInc(MetricInvalidIdentifier)
		e.emitAudit(ctx, auditEventInvalidIdentifier, false, rawIdentifier, 0, "", ErrInvalidIdentifier, nil)
		return nil, ErrInvalidIdentifier
	}
	idKey := ident.String()

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, idKey); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, idKey, 0, "", ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			// Throttle backend down: fail open, credentials still decide.
			log.Print("storeauth: login throttle check failed: ", err)
		}
	}

	if secret == "" {
		return nil, e.failLogin(ctx, idKey, 0, "empty_secret")
	}

	if e.detector != nil && e.detector.Matches(secret) {
		if e.noticeAlreadyShown(idKey) {
			return nil, e.failLogin(ctx, idKey, 0, "deactivated_repeat")
		}
		name := e.lookupDisplayName(ctx, ident)
		e.metricInc(MetricDeactivatedNotice)
		e.emitAudit(ctx, auditEventDeactivatedNotice, false, idKey, 0, "", nil, func() map[string]string {
			return map[string]string{"display_name": name}
		})
		return &LoginResult{Deactivated: true, DeactivatedName: name}, nil
	}

	account, err := e.credentials.LookupAccount(ctx, ident)
	if err != nil {
		log.Print("storeauth: account lookup failed: ", err)
		return nil, e.failLogin(ctx, idKey, 0, "lookup_error")
	}
	if account == nil {
		return nil, e.failLogin(ctx, idKey, 0, "account_not_found")
	}

	legacySecret, err := e.credentials.LookupLegacySecret(ctx, account.AccountNumber)
	if err != nil {
		log.Print("storeauth: legacy secret lookup failed: ", err)
		return nil, e.failLogin(ctx, idKey, account.AccountNumber, "lookup_error")
	}

	outcome := verifyCredentials(account, legacySecret, secret)
	secret = ""
	if !outcome.ok {
		return nil, e.failLogin(ctx, idKey, account.AccountNumber, "secret_mismatch")
	}

	if account.IsPrivileged && e.config.TwoFactor.Enabled {
		if err := e.issueTwoFactor(ctx, idKey, account); err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	return e.establishSession(ctx, idKey, account, outcome.requiresChange, gen)
}

// Logout ends the current session and clears its scoped storage. It is safe
// to call with no live session.
func (e *Engine) Logout(ctx context.Context) {
	if e == nil || e.sessions == nil {
		return
	}
	e.sessions.Clear()
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", 0, "", nil, nil)
}

// failLogin counts a failed attempt against the throttle and returns the
// uniform credential error, or the rate-limit error when this attempt
// exhausted the budget.
func (e *Engine) failLogin(ctx context.Context, idKey string, accountNumber int64, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, idKey); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, idKey, accountNumber, "", ErrLoginRateLimited, nil)
				return ErrLoginRateLimited
			}
			log.Print("storeauth: login throttle increment failed: ", err)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, idKey, accountNumber, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

// lookupDisplayName fetches the account name for the deactivation notice.
// Best effort: a failed lookup yields an empty name, never an error, so the
// notice path stays indistinguishable from a normal failure in timing terms.
func (e *Engine) lookupDisplayName(ctx context.Context, ident Identifier) string {
	account, err := e.credentials.LookupAccount(ctx, ident)
	if err != nil || account == nil {
		return ""
	}
	return account.DisplayName
}

func (e *Engine) establishSession(
	ctx context.Context,
	idKey string,
	account *AccountRecord,
	requiresChange bool,
	gen uint64,
) (*LoginResult, error) {
	user := session.User{
		AccountNumber:        account.AccountNumber,
		DisplayName:          account.DisplayName,
		Email:                account.Email,
		PostalCode:           account.PostalCode,
		IsPrivileged:         account.IsPrivileged,
		RequiresSecretChange: requiresChange || account.RequiresSecretChange,
	}

	if err := e.sessions.Create(user, gen); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, idKey, account.AccountNumber, "", ErrSessionExpired, func() map[string]string {
			return map[string]string{"reason": "stale_generation"}
		})
		return nil, ErrSessionExpired
	}

	var scopeToken string
	if e.scopeTokens != nil {
		tok, err := e.scopeTokens.Mint(account.AccountNumber, account.IsPrivileged)
		if err != nil {
			// The session stands; downstream calls just lack a token.
			log.Print("storeauth: scope token mint failed: ", err)
		} else {
			scopeToken = tok
		}
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, idKey); err != nil {
			log.Print("storeauth: login throttle reset failed: ", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, idKey, account.AccountNumber, "", nil, func() map[string]string {
		m := map[string]string{}
		if user.RequiresSecretChange {
			m["requires_secret_change"] = "true"
		}
		return m
	})

	return &LoginResult{
		User:                 &user,
		RequiresSecretChange: user.RequiresSecretChange,
		ScopeToken:           scopeToken,
	}, nil
}
