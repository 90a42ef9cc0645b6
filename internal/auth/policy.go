package auth

import "github.com/dmarkov/saasadmin/internal/models"

type Resource string

const (
	ResourceUsers        Resource = "users"
	ResourceCompanies    Resource = "companies"
	ResourceInvitations  Resource = "invitations"
	ResourceSettings     Resource = "settings"
	ResourceSubscription Resource = "subscription"
	ResourceAnalytics    Resource = "analytics"
	ResourceAudit        Resource = "audit"
	ResourceMessages     Resource = "messages"
)

type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Scope is the row-visibility granted to a caller for a resource/action pair.
type Scope int

const (
	ScopeNone    Scope = iota // denied
	ScopeSelf                 // rows belonging to the caller's own user id
	ScopeCompany              // rows where company_id = caller.company_id
	ScopeAll                  // unrestricted
)

// policy is the single place access rules live. Handlers consult it once per
// request and apply the returned scope as a query predicate; they never branch
// on role directly.
var policy = map[models.Role]map[Resource]map[Action]Scope{
	models.RoleAdmin: {
		ResourceUsers: {
			ActionList: ScopeCompany, ActionRead: ScopeCompany, ActionCreate: ScopeCompany,
			ActionUpdate: ScopeCompany, ActionDelete: ScopeCompany,
		},
		ResourceCompanies: {
			ActionRead: ScopeCompany, ActionUpdate: ScopeCompany,
		},
		ResourceInvitations: {
			ActionList: ScopeCompany, ActionCreate: ScopeCompany,
		},
		ResourceSettings: {
			ActionRead: ScopeCompany, ActionUpdate: ScopeCompany,
		},
		ResourceSubscription: {
			ActionRead: ScopeCompany, ActionUpdate: ScopeCompany,
		},
		ResourceAnalytics: {
			ActionRead: ScopeCompany,
		},
		ResourceAudit: {
			ActionRead: ScopeCompany,
		},
		ResourceMessages: {
			ActionCreate: ScopeCompany,
		},
	},
	models.RoleUser: {
		ResourceUsers: {
			ActionList: ScopeSelf, ActionRead: ScopeSelf,
		},
	},
}

// ScopeFor resolves the access scope for a role acting on a resource.
// super_admin is unrestricted everywhere.
func ScopeFor(role models.Role, res Resource, act Action) Scope {
	if role == models.RoleSuperAdmin {
		return ScopeAll
	}
	byResource, ok := policy[role]
	if !ok {
		return ScopeNone
	}
	byAction, ok := byResource[res]
	if !ok {
		return ScopeNone
	}
	return byAction[act]
}
