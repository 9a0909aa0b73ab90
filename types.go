package storeauth

import (
	"context"
	"io"
	"strconv"

	internalaudit "github.com/musicsupplies/storeauth/internal/audit"
	"github.com/musicsupplies/storeauth/session"
)

// IdentifierKind distinguishes the two login-handle shapes accepted by the
// storefront: numeric wholesale account numbers and email addresses.
type IdentifierKind uint8

const (
	// IdentifierAccountNumber is a numeric wholesale account number.
	IdentifierAccountNumber IdentifierKind = iota
	// IdentifierEmail is an email address, matched case-insensitively.
	IdentifierEmail
)

// Identifier is a resolved, normalized login handle produced by
// [ResolveIdentifier]. Exactly one of AccountNumber/Email is meaningful,
// selected by Kind.
type Identifier struct {
	Kind          IdentifierKind
	AccountNumber int64
	Email         string
}

// String returns the canonical form used for audit records, throttle keys,
// and the per-engine deactivation-notice set.
func (id Identifier) String() string {
	if id.Kind == IdentifierEmail {
		return id.Email
	}
	return strconv.FormatInt(id.AccountNumber, 10)
}

// AccountRecord is the account row resolved from the credential store.
// StoredSecret may be empty when the account has never set a password; the
// legacy secret table is consulted separately and takes precedence when present.
type AccountRecord struct {
	AccountNumber        int64
	Email                string
	DisplayName          string
	PostalCode           string
	StoredSecret         string
	IsPrivileged         bool
	RequiresSecretChange bool
}

// CredentialStore is the external collaborator holding account records and the
// parallel legacy secret table. Lookup misses return (nil, nil) and ("", nil)
// respectively; errors indicate backend failure, not absence.
//
// Email lookups must be case-insensitive and whitespace-trimmed; account-number
// lookups are exact. The engine never writes through this interface.
type CredentialStore interface {
	LookupAccount(ctx context.Context, id Identifier) (*AccountRecord, error)
	LookupLegacySecret(ctx context.Context, accountNumber int64) (string, error)
}

// SMSDispatcher delivers a two-factor code out of band. Delivery is
// fire-and-forget from the engine's perspective: errors are logged and counted
// but never surfaced as login failures.
type SMSDispatcher interface {
	SendCode(ctx context.Context, accountNumber int64, code string) error
}

// LoginResult is returned by [Engine.Login] and [Engine.ConfirmTwoFactor].
//
// Exactly one of three shapes is populated: Deactivated with the account's
// display name, TwoFactorRequired with no user, or an authenticated User with
// the downstream scope token.
type LoginResult struct {
	User                 *session.User
	RequiresSecretChange bool
	ScopeToken           string

	TwoFactorRequired bool

	Deactivated     bool
	DeactivatedName string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
