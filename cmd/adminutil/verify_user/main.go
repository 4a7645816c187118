package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/admin"
	"github.com/sudo-init-do/efresco/internal/auth"
	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/logger"
	"github.com/sudo-init-do/efresco/internal/session"
	"github.com/sudo-init-do/efresco/internal/user"
)

// verify_user marks an account verified, signing in as an administrator.
// Usage:
//
//	go run ./cmd/adminutil/verify_user -email ana@efresco.bo -as admin@efresco.bo -password secret
func main() {
	email := flag.String("email", "", "Email of the user to verify")
	as := flag.String("as", "", "Administrator email")
	password := flag.String("password", os.Getenv("EFRESCO_ADMIN_PASSWORD"), "Administrator password")
	flag.Parse()

	if *email == "" || *as == "" {
		fmt.Fprintln(os.Stderr, "usage: verify_user -email user@example.com -as admin@example.com [-password ...]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	// live answers only, demo data would hide a failed change
	cfg.API.Fallback = false
	store := session.NewMemory()
	api := gateway.New(cfg.API, gateway.WithTokenSource(store), gateway.WithLogger(log.Named("gateway")))
	ctx := context.Background()

	res, err := auth.NewService(api, store, log).Login(ctx, auth.Credentials{Email: *as, Password: *password})
	if err != nil {
		log.Fatal("admin login failed", zap.Error(err))
	}
	if !res.User.HasRole(user.RoleAdmin) {
		log.Fatal("account is not an administrator", zap.String("email", *as))
	}

	svc := admin.NewService(api, log)
	found, err := svc.SearchUsers(ctx, *email, 1, 10)
	if err != nil {
		log.Fatal("user lookup failed", zap.Error(err))
	}
	for _, u := range found.Users {
		if !strings.EqualFold(u.Email, *email) {
			continue
		}
		if _, err := svc.VerifyUser(ctx, u.ID); err != nil {
			log.Fatal("verify failed", zap.Int64("user", u.ID), zap.Error(err))
		}
		fmt.Printf("User %s verified.\n", *email)
		return
	}
	log.Fatal("no user found", zap.String("email", *email))
}
