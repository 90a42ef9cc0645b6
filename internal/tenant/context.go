package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/models"
)

type contextKey string

const (
	userKey    contextKey = "user"
	companyKey contextKey = "company"
)

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func WithCompany(ctx context.Context, c *models.Company) context.Context {
	return context.WithValue(ctx, companyKey, c)
}

func CompanyFromContext(ctx context.Context) *models.Company {
	c, _ := ctx.Value(companyKey).(*models.Company)
	return c
}

// CompanyIDFromContext returns the caller's company id, or uuid.Nil when the
// caller has no company affiliation.
func CompanyIDFromContext(ctx context.Context) uuid.UUID {
	if u := UserFromContext(ctx); u != nil && u.CompanyID != nil {
		return *u.CompanyID
	}
	return uuid.Nil
}
