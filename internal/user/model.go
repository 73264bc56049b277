package user

// RoleUser is the realm role every self-registered account receives.
const RoleUser = "User"

// User is the local record of an identity-provider account.
type User struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles"`
	KeycloakUserID string   `json:"keycloak_user_id"`
}

// CreateRequest holds the fields for provisioning an account.
type CreateRequest struct {
	Username string
	Email    string
	Password string
}

// UpdateSelfRequest holds the fields a caller may change on their own account.
type UpdateSelfRequest struct {
	Email    *string
	Password *string
}

// AdminUpdateRequest holds the fields an administrator may change on any account.
// Roles, when set, replace the stored role list.
type AdminUpdateRequest struct {
	Username *string
	Email    *string
	Roles    *[]string
	Password *string
}

// Fields holds stored attributes to change. Nil fields are left unchanged.
type Fields struct {
	Username *string
	Email    *string
	Roles    *[]string
}
