package auth

import "slices"

// Realm roles checked by the API.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// TokenData is the caller identity extracted from a validated bearer token.
// It lives for a single request.
type TokenData struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the caller holds role.
func (t *TokenData) HasRole(role string) bool {
	if t == nil {
		return false
	}
	return slices.Contains(t.Roles, role)
}
