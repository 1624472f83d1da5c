// Command token prints an access token for a user id, signed with the configured secret.
// It is meant for local development against the API.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/zelkovascum/Photudio/internal/config"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: token <user_id>")
		os.Exit(2)
	}
	userID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || userID <= 0 {
		fmt.Fprintln(os.Stderr, "user_id must be a positive integer")
		os.Exit(2)
	}

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, expiresAt, err := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL).GenerateAccessToken(userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
}
