package storeauth

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ResolveIdentifier classifies a raw login handle as an account number or an
// email address and normalizes it. Digits-only input (after trimming) resolves
// as an account number; everything else is treated as an email, trimmed and
// lower-cased. Returns [ErrInvalidIdentifier] for empty input or input that
// fails the corresponding format check. No side effects.
func ResolveIdentifier(raw string, cfg IdentifierConfig) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, ErrInvalidIdentifier
	}

	if isDigitsOnly(trimmed) {
		if len(trimmed) > cfg.MaxAccountNumberDigits {
			return Identifier{}, ErrInvalidIdentifier
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil || n <= 0 {
			return Identifier{}, ErrInvalidIdentifier
		}
		return Identifier{Kind: IdentifierAccountNumber, AccountNumber: n}, nil
	}

	email := strings.ToLower(trimmed)
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return Identifier{}, ErrInvalidIdentifier
	}
	return Identifier{Kind: IdentifierEmail, Email: email}, nil
}

func isDigitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
