// tokengen mints a session token for an existing account, for local
// testing against the API without going through the login form.
//
//	tokengen -sub 5b0c...e1 -role recruiter
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// TokenResponse is printed to stdout.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	subject := flag.String("sub", "", "user id the token is issued to")
	role := flag.String("role", string(models.RoleUser), "role claim: user or recruiter")
	flag.Parse()

	userID, err := uuid.Parse(*subject)
	if err != nil {
		log.Fatalf("invalid -sub: %v", err)
	}
	if !models.Role(*role).Valid() {
		log.Fatalf("invalid -role %q", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	token, expiresAt, err := auth.GenerateToken(userID, models.Role(*role), cfg.Auth.JWTSecret, time.Now())
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(TokenResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		log.Fatalf("failed to encode token: %v", err)
	}
}
