package auth

import "context"

// AuthProvider answers membership questions for the HTTP layer. The
// connectivity core never sees this interface: identity is resolved
// entirely before a probe runs.
type AuthProvider interface {
	ValidateOrganizationAccess(ctx context.Context, userID, organizationID string) (bool, error)

	ValidateProjectAccess(ctx context.Context, userID string, projectID uint, requiredRole Role) (bool, error)

	GetUserOrganizations(ctx context.Context, userID string) ([]string, error)
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var RoleHierarchy = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
}

func (r Role) HasPermission(required Role) bool {
	return RoleHierarchy[r] >= RoleHierarchy[required]
}
