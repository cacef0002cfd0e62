package domain

import "time"

// Role is the access level carried by an API token
type Role string

const (
	// RoleAdmin may trigger rebuilds and reload the vocabulary
	RoleAdmin Role = "admin"
	// RoleReader may only query
	RoleReader Role = "reader"
)

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpired checks if the token has expired
func (c *TokenClaims) IsExpired() bool {
	return c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt
}

// AuthContext contains the authenticated caller for request context
type AuthContext struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsAdmin checks if the caller is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
