package session

// User is the sanitized account projection that lives inside a session.
// It never carries secrets; callers build it from a verified account record.
type User struct {
	AccountNumber        int64  `json:"account_number"`
	DisplayName          string `json:"display_name"`
	Email                string `json:"email,omitempty"`
	PostalCode           string `json:"postal_code,omitempty"`
	IsPrivileged         bool   `json:"is_privileged,omitempty"`
	RequiresSecretChange bool   `json:"requires_secret_change,omitempty"`
}

// record is the persisted session envelope. Timestamps are unix milliseconds.
type record struct {
	User           User  `json:"user"`
	IssuedAt       int64 `json:"issued_at"`
	ExpiresAt      int64 `json:"expires_at"`
	LastActivityAt int64 `json:"last_activity_at"`
}
