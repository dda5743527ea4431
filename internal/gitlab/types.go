package gitlab

// PersonalAccessToken mirrors the fields of a GitLab personal access token returned by the REST API.
// Timestamps are kept verbatim so reports echo exactly what the server returned.
type PersonalAccessToken struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	CreatedAt  string   `json:"created_at"`
	ExpiresAt  *string  `json:"expires_at"`
	LastUsedAt *string  `json:"last_used_at,omitempty"`
	Revoked    bool     `json:"revoked"`
	Active     bool     `json:"active"`
	Scopes     []string `json:"scopes,omitempty"`
	UserID     int64    `json:"user_id,omitempty"`
}

// HasExpiry reports whether the token carries a non-empty expiry timestamp.
func (token PersonalAccessToken) HasExpiry() bool {
	return token.ExpiresAt != nil && len(*token.ExpiresAt) > 0
}

// ExpiresAtText returns the raw expiry text, or an empty string when the token never expires.
func (token PersonalAccessToken) ExpiresAtText() string {
	if token.ExpiresAt == nil {
		return ""
	}
	return *token.ExpiresAt
}
