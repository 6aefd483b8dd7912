package domain

import "strings"

// PublicProfile decorates room display names and avatars.
type PublicProfile struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url,omitempty"`
}

const UnknownUserName = "Unknown user"

func (p *PublicProfile) DisplayName(fallback string) string {
	if p != nil {
		if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
			return name
		}
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return UnknownUserName
}

// Identity is the authenticated caller. Credential is the raw bearer token,
// forwarded to the platform API and the live transport.
type Identity struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"-"`
}
