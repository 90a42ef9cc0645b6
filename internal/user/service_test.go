package user

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
)

func TestBuildListQuery(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()

	tests := []struct {
		name     string
		acc      Access
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "all scope has no predicate",
			acc:      Access{Scope: auth.ScopeAll},
			wantSQL:  "",
			wantArgs: nil,
		},
		{
			name:     "company scope filters by company",
			acc:      Access{Scope: auth.ScopeCompany, CompanyID: companyID},
			wantSQL:  "WHERE u.company_id = $1",
			wantArgs: []any{companyID},
		},
		{
			name:     "self scope filters by user id",
			acc:      Access{Scope: auth.ScopeSelf, UserID: userID},
			wantSQL:  "WHERE u.id = $1",
			wantArgs: []any{userID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.acc)

			if tt.wantSQL == "" {
				if strings.Contains(query, "WHERE") {
					t.Errorf("unscoped query has a predicate: %s", query)
				}
			} else if !strings.Contains(query, tt.wantSQL) {
				t.Errorf("query %q missing %q", query, tt.wantSQL)
			}

			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}

			if !strings.Contains(query, "ORDER BY u.created_at DESC") {
				t.Error("query missing ordering")
			}
		})
	}
}

// The self-edit guards run before any query, so they hold with no database
// behind the service.
func TestDeleteOwnAccountForbidden(t *testing.T) {
	svc := NewService(nil, 4)
	self := uuid.New()
	acc := Access{Scope: auth.ScopeCompany, UserID: self, CompanyID: uuid.New()}

	err := svc.Delete(context.Background(), acc, self)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("Delete(self) error = %v, want forbidden", err)
	}
	if got := apperr.ClientMessage(err); got != "You cannot delete your own account" {
		t.Errorf("message = %q", got)
	}
}

func TestUpdateOwnAccountForbidden(t *testing.T) {
	svc := NewService(nil, 4)
	self := uuid.New()

	for _, scope := range []auth.Scope{auth.ScopeCompany, auth.ScopeAll} {
		acc := Access{Scope: scope, UserID: self, CompanyID: uuid.New()}

		_, err := svc.Update(context.Background(), acc, self, UpdateRequest{
			FirstName: "Ada", LastName: "Lovelace", Role: "admin",
		})
		if !apperr.IsKind(err, apperr.KindForbidden) {
			t.Fatalf("Update(self) with scope %v error = %v, want forbidden", scope, err)
		}
		if got := apperr.ClientMessage(err); got != "Use the profile endpoint to edit your own account" {
			t.Errorf("message = %q", got)
		}
	}
}

func TestScopePredicate(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()

	pred, args := scopePredicate(Access{Scope: auth.ScopeAll}, 3)
	if pred != "" || args != nil {
		t.Errorf("all scope: pred = %q args = %v, want empty", pred, args)
	}

	pred, args = scopePredicate(Access{Scope: auth.ScopeCompany, CompanyID: companyID}, 3)
	if pred != " AND company_id = $3" {
		t.Errorf("company pred = %q", pred)
	}
	if len(args) != 1 || args[0] != companyID {
		t.Errorf("company args = %v", args)
	}

	pred, args = scopePredicate(Access{Scope: auth.ScopeSelf, UserID: userID}, 6)
	if pred != " AND id = $6" {
		t.Errorf("self pred = %q", pred)
	}
	if len(args) != 1 || args[0] != userID {
		t.Errorf("self args = %v", args)
	}
}
