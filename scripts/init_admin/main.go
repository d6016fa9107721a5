package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bongbari/internal/config"
	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/service"
)

// init_admin creates or updates an admin account and can enroll it in TOTP.
//
//	go run ./scripts/init_admin -user admin -password ... [-totp]
func main() {
	cfg := config.Load()

	username := flag.String("user", cfg.AdminUserName, "admin username")
	password := flag.String("password", cfg.AdminPassword, "admin password")
	enableTOTP := flag.Bool("totp", false, "generate a TOTP secret and print the otpauth URL")
	flag.Parse()

	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "both -user and -password (or ADMIN_USER_NAME / ADMIN_PASSWORD) are required")
		os.Exit(2)
	}

	if err := db.Init(db.Options{URL: cfg.DatabaseURL, Path: cfg.DatabasePath, Silent: true}); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	ctx := context.Background()
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminTokenTTL)
	auth := service.NewAuthService(db.DB, tokens, nil)

	if err := auth.SetPassword(ctx, *username, *password); err != nil {
		log.Fatalf("failed to save admin: %v", err)
	}
	fmt.Printf("admin %q saved\n", strings.TrimSpace(*username))

	if !*enableTOTP {
		return
	}
	url, err := auth.EnableTOTP(ctx, *username)
	if err != nil {
		log.Fatalf("failed to enable totp: %v", err)
	}
	fmt.Println("scan this URL with an authenticator app:")
	fmt.Println(url)
}
