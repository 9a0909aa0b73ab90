package storeauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"github.com/musicsupplies/storeauth/internal"
	"github.com/musicsupplies/storeauth/internal/stores"
)

// issueTwoFactor creates a fresh challenge for the account and hands the code
// to the SMS dispatcher. Issuing replaces any prior live challenge for the
// same account. Delivery runs in its own goroutine with its own deadline;
// a delivery failure is recorded but never fails issuance.
func (e *Engine) issueTwoFactor(ctx context.Context, idKey string, account *AccountRecord) error {
	if e.twoFactorStore == nil || e.smsDispatcher == nil {
		return ErrTwoFactorUnavailable
	}

	code, err := internal.NumericCode(e.config.TwoFactor.CodeDigits)
	if err != nil {
		log.Print("storeauth: two-factor code generation failed: ", err)
		return ErrTwoFactorUnavailable
	}

	challenge := stores.TwoFactorChallenge{
		Code:      code,
		ExpiresAt: time.Now().Add(e.config.TwoFactor.ChallengeTTL).Unix(),
	}
	if err := e.twoFactorStore.Save(ctx, account.AccountNumber, &challenge, e.config.TwoFactor.ChallengeTTL); err != nil {
		log.Print("storeauth: two-factor challenge save failed: ", err)
		return ErrTwoFactorUnavailable
	}

	e.metricInc(MetricTwoFactorIssued)
	e.emitAudit(ctx, auditEventTwoFactorIssued, true, idKey, account.AccountNumber, "", nil, nil)

	accountNumber := account.AccountNumber
	timeout := e.config.TwoFactor.DeliveryTimeout
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := e.smsDispatcher.SendCode(sendCtx, accountNumber, code); err != nil {
			log.Print("storeauth: two-factor delivery failed: ", err)
			e.metricInc(MetricTwoFactorDeliveryFailure)
			e.emitAudit(context.Background(), auditEventTwoFactorDeliveryFailure, false, idKey, accountNumber, "", nil, nil)
		}
	}()

	return nil
}

// ConfirmTwoFactor completes a pending privileged login. The primary
// credentials are verified again so a leaked code alone is never enough, then
// the submitted code is checked against the live challenge. A wrong code is
// recoverable until the attempt budget runs out; expiry, exhaustion, and
// replay all surface as distinct errors that end the challenge.
func (e *Engine) ConfirmTwoFactor(ctx context.Context, rawIdentifier, secret, code string) (*LoginResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}
	if e.twoFactorStore == nil {
		return nil, ErrTwoFactorUnavailable
	}

	gen := e.sessions.Generation()

	ident, err := ResolveIdentifier(rawIdentifier, e.config.Identifier)
	if err != nil {
		e.metricInc(MetricInvalidIdentifier)
		return nil, ErrInvalidIdentifier
	}
	idKey := ident.String()

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

	challenge, err := e.twoFactorStore.Get(ctx, account.AccountNumber)
	if err != nil {
		mapped := mapTwoFactorStoreError(err)
		e.recordTwoFactorFailure(ctx, idKey, account.AccountNumber, mapped)
		return nil, mapped
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		exceeded, recErr := e.twoFactorStore.RecordFailure(ctx, account.AccountNumber, e.config.TwoFactor.MaxAttempts)
		if recErr != nil {
			mapped := mapTwoFactorStoreError(recErr)
			e.recordTwoFactorFailure(ctx, idKey, account.AccountNumber, mapped)
			return nil, mapped
		}
		if exceeded {
			e.recordTwoFactorFailure(ctx, idKey, account.AccountNumber, ErrTwoFactorAttemptsExceeded)
			return nil, ErrTwoFactorAttemptsExceeded
		}
		e.recordTwoFactorFailure(ctx, idKey, account.AccountNumber, ErrTwoFactorInvalid)
		return nil, ErrTwoFactorInvalid
	}

	deleted, err := e.twoFactorStore.Delete(ctx, account.AccountNumber)
	if err != nil {
		mapped := mapTwoFactorStoreError(err)
		e.recordTwoFactorFailure(ctx, idKey, account.AccountNumber, mapped)
		return nil, mapped
	}
	if !deleted {
		// The record was already consumed: a concurrent confirm won.
		e.metricInc(MetricTwoFactorReplayAttempt)
		e.emitAudit(ctx, auditEventTwoFactorReplay, false, idKey, account.AccountNumber, "", ErrTwoFactorReplay, nil)
		return nil, ErrTwoFactorReplay
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, idKey, account.AccountNumber, "", nil, nil)

	return e.establishSession(ctx, idKey, account, outcome.requiresChange, gen)
}

func (e *Engine) recordTwoFactorFailure(ctx context.Context, idKey string, accountNumber int64, err error) {
	switch {
	case errors.Is(err, ErrTwoFactorExpired):
		e.metricInc(MetricTwoFactorExpired)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, idKey, accountNumber, "", err, nil)
	case errors.Is(err, ErrTwoFactorAttemptsExceeded):
		e.metricInc(MetricTwoFactorAttemptsExceeded)
		e.emitAudit(ctx, auditEventTwoFactorExceeded, false, idKey, accountNumber, "", err, nil)
	default:
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, idKey, accountNumber, "", err, nil)
	}
}

func mapTwoFactorStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		return ErrTwoFactorInvalid
	case errors.Is(err, stores.ErrChallengeExpired):
		return ErrTwoFactorExpired
	case errors.Is(err, stores.ErrChallengeExceeded):
		return ErrTwoFactorAttemptsExceeded
	default:
		return ErrTwoFactorUnavailable
	}
}
