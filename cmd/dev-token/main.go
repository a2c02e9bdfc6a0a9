// Command dev-token prints a bearer token for calling the listing service locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	token_adapter "rental-system/internal/adapters/jwt"
	"rental-system/internal/core/domain"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "user id to embed (default: a fresh uuid)")
	email := flag.String("email", "dev@example.com", "email claim")
	role := flag.String("role", domain.RoleLandlord, "role claim: landlord or tenant")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	if *userID == "" {
		*userID = uuid.NewString()
	}

	svc, err := token_adapter.NewTokenService(secret)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}
	token, err := svc.GenerateToken(context.Background(), domain.Principal{UserID: *userID, Email: *email, Role: *role}, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s role=%s expires_in=%s\n", *userID, *role, *ttl)
	fmt.Println(token)
}
