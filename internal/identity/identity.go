package identity

// Role is the caller's team role as asserted by the external auth service.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Identity is the verified caller context attached to every engine operation.
// The engine trusts it as-is; credential verification happens upstream.
type Identity struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

// CanReview reports whether the caller may approve or reject submissions.
func (i Identity) CanReview() bool {
	return i.Role == RoleAdmin || i.Role == RoleOwner
}
