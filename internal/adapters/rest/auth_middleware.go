package rest

import (
	"context"
	"net/http"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"strings"
)

// TokenValidator turns a bearer token into the caller it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.Principal, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// bearerToken returns the token and whether an Authorization header was sent at all.
func bearerToken(r *http.Request) (token string, present bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	token = strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func (am *AuthMiddleware) authenticate(r *http.Request, token string) (*http.Request, bool) {
	user, err := am.validator.ValidateToken(r.Context(), token)
	if err != nil {
		return r, false
	}
	ctx := contextkeys.ContextWithUser(r.Context(), user)
	ctx = contextkeys.ContextWithLogger(ctx, contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"user_id": user.UserID,
	}))
	return r.WithContext(ctx), true
}

// Authenticate rejects requests without a valid bearer token.
func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			WriteJSONError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if token == "" {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		authed, ok := am.authenticate(r, token)
		if !ok {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, authed)
	})
}

// Optional lets anonymous requests through but still rejects a bad token,
// so a client never silently loses its identity.
func (am *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		if token == "" {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		authed, ok := am.authenticate(r, token)
		if !ok {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, authed)
	})
}
