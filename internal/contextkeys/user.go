package contextkeys

import (
	"context"
	"rental-system/internal/core/domain"
)

type userKeyType struct{}

var userKey = userKeyType{}

// ContextWithUser marks ctx as belonging to an authenticated caller.
func ContextWithUser(ctx context.Context, user domain.Principal) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the caller and whether one is authenticated.
func UserFromContext(ctx context.Context) (domain.Principal, bool) {
	user, ok := ctx.Value(userKey).(domain.Principal)
	if !ok || user.UserID == "" {
		return domain.Principal{}, false
	}
	return user, true
}
