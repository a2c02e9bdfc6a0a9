package token_adapter

import (
	"context"
	"errors"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid covers every rejected token: bad signature, expired, malformed.
var ErrTokenInvalid = errors.New("token is invalid")

const issuer = "rental-system"

// TokenService validates HS256 bearer tokens and, for local development, issues them.
type TokenService struct {
	signingKey []byte
	now        func() time.Time
}

func NewTokenService(signingKey string) (*TokenService, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("JWT signing key cannot be empty")
	}
	return &TokenService{signingKey: []byte(signingKey), now: time.Now}, nil
}

type jwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *TokenService) GenerateToken(ctx context.Context, user domain.Principal, ttl time.Duration) (string, error) {
	serviceLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TokenService",
		"method":    "GenerateToken",
		"user_id":   user.UserID,
	})

	if user.UserID == "" {
		return "", fmt.Errorf("cannot issue a token without a user id")
	}

	now := s.now()
	claims := &jwtCustomClaims{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		serviceLogger.Error("Failed to sign token", err, nil)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	serviceLogger.Debug("Token generated", port.Fields{"ttl": ttl.String()})
	return signedToken, nil
}

// ValidateToken returns the caller behind tokenString or ErrTokenInvalid.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (domain.Principal, error) {
	serviceLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TokenService",
		"method":    "ValidateToken",
	})

	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			serviceLogger.Warn("Token has expired", nil)
		} else {
			serviceLogger.Warn("Invalid token format or signature", port.Fields{"error": err.Error()})
		}
		return domain.Principal{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		serviceLogger.Error("Token was parsed without error, but claims type assertion failed", nil, nil)
		return domain.Principal{}, ErrTokenInvalid
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		serviceLogger.Warn("Token carries no user id", nil)
		return domain.Principal{}, ErrTokenInvalid
	}

	return domain.Principal{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}
