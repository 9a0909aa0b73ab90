package storeauth

import "strings"

// verifyOutcome is the result of a primary credential check. Failure carries no
// detail about which rule failed.
type verifyOutcome struct {
	ok             bool
	requiresChange bool
	privileged     bool
}

// verifyCredentials applies the layered comparison rules, in order:
//
//  1. missing account fails.
//  2. the privileged account accepts its legacy secret (case-insensitive,
//     trimmed) and bypasses every later rule.
//  3. the derived default secret, when defined, is accepted and forces a
//     secret change.
//  4. the effective stored secret (legacy table wins over the account row) is
//     compared through [secretsEquivalent].
//
// legacySecret is the value from the secondary legacy table, empty when absent.
func verifyCredentials(account *AccountRecord, legacySecret, submitted string) verifyOutcome {
	if account == nil {
		return verifyOutcome{}
	}

	if account.IsPrivileged {
		if legacySecret != "" && foldedEqual(legacySecret, submitted) {
			return verifyOutcome{ok: true, privileged: true}
		}
	}

	if derived, ok := deriveDefaultSecret(account.DisplayName, account.PostalCode); ok {
		if strings.EqualFold(derived, strings.TrimSpace(submitted)) {
			return verifyOutcome{ok: true, requiresChange: true}
		}
	}

	effective := legacySecret
	if effective == "" {
		effective = account.StoredSecret
	}
	if effective == "" {
		return verifyOutcome{}
	}
	if secretsEquivalent(effective, submitted) {
		return verifyOutcome{ok: true}
	}
	return verifyOutcome{}
}

// deriveDefaultSecret computes the legacy fallback credential: the first
// character of the display name plus the first five characters of the postal
// code, all lower-cased. Undefined when the display name is empty or the
// postal code is shorter than five characters.
func deriveDefaultSecret(displayName, postalCode string) (string, bool) {
	name := []rune(displayName)
	zip := []rune(postalCode)
	if len(name) == 0 || len(zip) < 5 {
		return "", false
	}
	return strings.ToLower(string(name[0]) + string(zip[:5])), true
}

// secretsEquivalent is the single named comparison policy for stored secrets.
// Three forms are accepted, first match wins: both values lower-cased and
// trimmed, exact equality, both values trimmed only. The leniency tolerates
// decades of inconsistent data entry in the legacy system; tightening it is a
// policy decision that must happen here and nowhere else.
func secretsEquivalent(stored, submitted string) bool {
	if foldedEqual(stored, submitted) {
		return true
	}
	if stored == submitted {
		return true
	}
	return strings.TrimSpace(stored) == strings.TrimSpace(submitted)
}

// foldedEqual compares two secrets case-insensitively after trimming.
func foldedEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
