package storeauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventInvalidIdentifier        = "invalid_identifier"
	auditEventDeactivatedNotice        = "deactivated_notice"
	auditEventTwoFactorIssued          = "two_factor_issued"
	auditEventTwoFactorSuccess         = "two_factor_success"
	auditEventTwoFactorFailure         = "two_factor_failure"
	auditEventTwoFactorExceeded        = "two_factor_attempts_exceeded"
	auditEventTwoFactorReplay          = "two_factor_replay"
	auditEventTwoFactorDeliveryFailure = "two_factor_delivery_failure"
	auditEventLogout                   = "logout"
	auditEventSessionExpired           = "session_expired"
)

// AuditErrorCode is the normalized error label attached to audit events.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidIdentifier  AuditErrorCode = "invalid_identifier"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrTwoFactorInvalid   AuditErrorCode = "two_factor_invalid"
	auditErrTwoFactorExpired   AuditErrorCode = "two_factor_expired"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrTwoFactorReplay    AuditErrorCode = "two_factor_replay"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identifier string,
	accountNumber int64,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		Identifier:    identifier,
		AccountNumber: accountNumber,
		SessionID:     sessionID,
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return auditErrInvalidIdentifier
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTwoFactorInvalid):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrTwoFactorExpired):
		return auditErrTwoFactorExpired
	case errors.Is(err, ErrTwoFactorAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrTwoFactorReplay):
		return auditErrTwoFactorReplay
	case errors.Is(err, ErrTwoFactorUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	default:
		return auditErrInternal
	}
}
