package domain

// AllowedVisibilities returns the set of visibilities a role may create or
// relabel files to, broadest last.
func AllowedVisibilities(role Role) []Visibility {
	switch role {
	case RoleSystemAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization, VisibilitySystem}
	case RoleOrgAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization}
	case RoleCompanyAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany}
	default:
		return []Visibility{VisibilityPrivate}
	}
}

// VisibilityAllowed reports whether role may assign vis to a file.
func VisibilityAllowed(role Role, vis Visibility) bool {
	for _, v := range AllowedVisibilities(role) {
		if v == vis {
			return true
		}
	}
	return false
}

// CanAccessFile is the access predicate consulted by every cross-tenant read.
func CanAccessFile(file FileRecord, actor Actor) bool {
	if file.UserID == actor.UserID {
		return true
	}
	if actor.Role == RoleSystemAdmin {
		return true
	}
	switch file.Visibility {
	case VisibilitySystem:
		return true
	case VisibilityOrganization:
		return file.OrganizationID != "" && file.OrganizationID == actor.OrganizationID
	case VisibilityCompany:
		return file.CompanyID != "" && file.CompanyID == actor.CompanyID
	case VisibilityDepartment:
		return file.CompanyID != "" && file.CompanyID == actor.CompanyID &&
			file.DepartmentID != "" && file.DepartmentID == actor.DepartmentID
	}
	return false
}

// CanCreateUser reports whether actor may create a user with the given role
// inside the given scope.
func CanCreateUser(actor Actor, role Role, organizationID, companyID string) bool {
	switch actor.Role {
	case RoleSystemAdmin:
		return true
	case RoleOrgAdmin:
		if role != RoleCompanyAdmin && role != RoleUser {
			return false
		}
		return organizationID != "" && organizationID == actor.OrganizationID
	case RoleCompanyAdmin:
		if role != RoleUser {
			return false
		}
		return companyID != "" && companyID == actor.CompanyID
	}
	return false
}

// CanSeeUser reports whether admin may see user in a listing.
func CanSeeUser(admin Actor, user User) bool {
	switch admin.Role {
	case RoleSystemAdmin:
		return true
	case RoleOrgAdmin:
		return user.OrganizationID == admin.OrganizationID
	case RoleCompanyAdmin:
		return user.CompanyID == admin.CompanyID
	}
	return false
}
