package domain

// Role is an actor's authority level.
type Role string

const (
	RoleSystemAdmin  Role = "system_admin"
	RoleOrgAdmin     Role = "org_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleUser         Role = "user"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystemAdmin, RoleOrgAdmin, RoleCompanyAdmin, RoleUser:
		return true
	}
	return false
}

// User is a provisioned identity with its tenant scope.
// UserID is the identity provider's subject, persisted verbatim.
type User struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
	CompanyID      string `json:"companyId,omitempty"`
	DepartmentID   string `json:"departmentId,omitempty"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// Actor is the authenticated principal evaluated by the access policy.
type Actor struct {
	UserID         string
	Role           Role
	OrganizationID string
	CompanyID      string
	DepartmentID   string
}

// AsActor converts a persisted user into a policy actor.
func (u User) AsActor() Actor {
	return Actor{
		UserID:         u.UserID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		CompanyID:      u.CompanyID,
		DepartmentID:   u.DepartmentID,
	}
}
