package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedVisibilities_Matrix(t *testing.T) {
	cases := []struct {
		role Role
		want []Visibility
	}{
		{RoleSystemAdmin, []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization, VisibilitySystem}},
		{RoleOrgAdmin, []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization}},
		{RoleCompanyAdmin, []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany}},
		{RoleUser, []Visibility{VisibilityPrivate}},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			require.Equal(t, tc.want, AllowedVisibilities(tc.role))
		})
	}
}

func TestVisibilityAllowed(t *testing.T) {
	require.False(t, VisibilityAllowed(RoleUser, VisibilityCompany))
	require.True(t, VisibilityAllowed(RoleCompanyAdmin, VisibilityCompany))
	require.False(t, VisibilityAllowed(RoleCompanyAdmin, VisibilitySystem))
	require.True(t, VisibilityAllowed(RoleSystemAdmin, VisibilitySystem))
}

func TestCanAccessFile_Owner(t *testing.T) {
	f := FileRecord{UserID: "u1", Visibility: VisibilityPrivate}
	require.True(t, CanAccessFile(f, Actor{UserID: "u1", Role: RoleUser}))
	require.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser}))
}

func TestCanAccessFile_SystemAdminSeesEverything(t *testing.T) {
	f := FileRecord{UserID: "u1", Visibility: VisibilityPrivate}
	require.True(t, CanAccessFile(f, Actor{UserID: "admin", Role: RoleSystemAdmin}))
}

func TestCanAccessFile_ScopeMatching(t *testing.T) {
	cases := []struct {
		name  string
		file  FileRecord
		actor Actor
		want  bool
	}{
		{
			name:  "system visible to anyone",
			file:  FileRecord{UserID: "u1", Visibility: VisibilitySystem},
			actor: Actor{UserID: "u2", Role: RoleUser},
			want:  true,
		},
		{
			name:  "organization match",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityOrganization, OrganizationID: "org-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, OrganizationID: "org-1"},
			want:  true,
		},
		{
			name:  "organization mismatch",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityOrganization, OrganizationID: "org-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, OrganizationID: "org-2"},
			want:  false,
		},
		{
			name:  "company match",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityCompany, CompanyID: "c-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, CompanyID: "c-1"},
			want:  true,
		},
		{
			name:  "company mismatch",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityCompany, CompanyID: "c-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, CompanyID: "c-2"},
			want:  false,
		},
		{
			name:  "department needs company and department",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityDepartment, CompanyID: "c-1", DepartmentID: "d-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, CompanyID: "c-1", DepartmentID: "d-1"},
			want:  true,
		},
		{
			name:  "department mismatch within company",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityDepartment, CompanyID: "c-1", DepartmentID: "d-1"},
			actor: Actor{UserID: "u2", Role: RoleUser, CompanyID: "c-1", DepartmentID: "d-2"},
			want:  false,
		},
		{
			name:  "empty scope ids never match",
			file:  FileRecord{UserID: "u1", Visibility: VisibilityOrganization},
			actor: Actor{UserID: "u2", Role: RoleUser},
			want:  false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanAccessFile(tc.file, tc.actor))
		})
	}
}

func TestCanCreateUser_Matrix(t *testing.T) {
	sysAdmin := Actor{UserID: "s", Role: RoleSystemAdmin}
	orgAdmin := Actor{UserID: "o", Role: RoleOrgAdmin, OrganizationID: "org-1"}
	companyAdmin := Actor{UserID: "c", Role: RoleCompanyAdmin, OrganizationID: "org-1", CompanyID: "c-1"}
	plain := Actor{UserID: "u", Role: RoleUser, CompanyID: "c-1"}

	require.True(t, CanCreateUser(sysAdmin, RoleSystemAdmin, "", ""))
	require.True(t, CanCreateUser(sysAdmin, RoleUser, "org-9", "c-9"))

	require.True(t, CanCreateUser(orgAdmin, RoleUser, "org-1", "c-1"))
	require.True(t, CanCreateUser(orgAdmin, RoleCompanyAdmin, "org-1", "c-1"))
	require.False(t, CanCreateUser(orgAdmin, RoleUser, "org-2", "c-1"))
	require.False(t, CanCreateUser(orgAdmin, RoleSystemAdmin, "org-1", ""))
	require.False(t, CanCreateUser(orgAdmin, RoleOrgAdmin, "org-1", ""))

	require.True(t, CanCreateUser(companyAdmin, RoleUser, "org-1", "c-1"))
	require.False(t, CanCreateUser(companyAdmin, RoleUser, "org-1", "c-2"))
	require.False(t, CanCreateUser(companyAdmin, RoleCompanyAdmin, "org-1", "c-1"))

	require.False(t, CanCreateUser(plain, RoleUser, "", "c-1"))
}

func TestCanSeeUser(t *testing.T) {
	u := User{UserID: "u1", OrganizationID: "org-1", CompanyID: "c-1"}
	require.True(t, CanSeeUser(Actor{Role: RoleSystemAdmin}, u))
	require.True(t, CanSeeUser(Actor{Role: RoleOrgAdmin, OrganizationID: "org-1"}, u))
	require.False(t, CanSeeUser(Actor{Role: RoleOrgAdmin, OrganizationID: "org-2"}, u))
	require.True(t, CanSeeUser(Actor{Role: RoleCompanyAdmin, CompanyID: "c-1"}, u))
	require.False(t, CanSeeUser(Actor{Role: RoleCompanyAdmin, CompanyID: "c-2"}, u))
	require.False(t, CanSeeUser(Actor{Role: RoleUser}, u))
}
