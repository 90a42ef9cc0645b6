package auth

import (
	"testing"

	"github.com/dmarkov/saasadmin/internal/models"
)

func TestScopeFor(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		res  Resource
		act  Action
		want Scope
	}{
		{"super_admin is unrestricted", models.RoleSuperAdmin, ResourceCompanies, ActionDelete, ScopeAll},
		{"super_admin covers unknown resources", models.RoleSuperAdmin, Resource("anything"), ActionRead, ScopeAll},

		{"admin lists own company users", models.RoleAdmin, ResourceUsers, ActionList, ScopeCompany},
		{"admin deletes own company users", models.RoleAdmin, ResourceUsers, ActionDelete, ScopeCompany},
		{"admin reads own company", models.RoleAdmin, ResourceCompanies, ActionRead, ScopeCompany},
		{"admin cannot list companies", models.RoleAdmin, ResourceCompanies, ActionList, ScopeNone},
		{"admin cannot create companies", models.RoleAdmin, ResourceCompanies, ActionCreate, ScopeNone},
		{"admin cannot delete companies", models.RoleAdmin, ResourceCompanies, ActionDelete, ScopeNone},
		{"admin invites into own company", models.RoleAdmin, ResourceInvitations, ActionCreate, ScopeCompany},
		{"admin manages own settings", models.RoleAdmin, ResourceSettings, ActionUpdate, ScopeCompany},
		{"admin reads own subscription", models.RoleAdmin, ResourceSubscription, ActionRead, ScopeCompany},
		{"admin reads own analytics", models.RoleAdmin, ResourceAnalytics, ActionRead, ScopeCompany},
		{"admin reads own audit trail", models.RoleAdmin, ResourceAudit, ActionRead, ScopeCompany},
		{"admin sends messages", models.RoleAdmin, ResourceMessages, ActionCreate, ScopeCompany},

		{"user sees own record in lists", models.RoleUser, ResourceUsers, ActionList, ScopeSelf},
		{"user reads own record", models.RoleUser, ResourceUsers, ActionRead, ScopeSelf},
		{"user cannot create users", models.RoleUser, ResourceUsers, ActionCreate, ScopeNone},
		{"user cannot invite", models.RoleUser, ResourceInvitations, ActionCreate, ScopeNone},
		{"user cannot touch settings", models.RoleUser, ResourceSettings, ActionRead, ScopeNone},
		{"user cannot see analytics", models.RoleUser, ResourceAnalytics, ActionRead, ScopeNone},

		{"unknown role gets nothing", models.Role("guest"), ResourceUsers, ActionRead, ScopeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopeFor(tt.role, tt.res, tt.act); got != tt.want {
				t.Errorf("ScopeFor(%s, %s, %s) = %v, want %v", tt.role, tt.res, tt.act, got, tt.want)
			}
		})
	}
}
