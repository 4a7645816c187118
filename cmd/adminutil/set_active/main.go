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
)

// set_active enables or disables an account by email.
// Usage:
//
//	go run ./cmd/adminutil/set_active -email carlos@efresco.bo -active=false -as admin@efresco.bo
func main() {
	email := flag.String("email", "", "Email of the user to change")
	active := flag.Bool("active", true, "Whether the account may sign in")
	as := flag.String("as", "", "Administrator email")
	password := flag.String("password", os.Getenv("EFRESCO_ADMIN_PASSWORD"), "Administrator password")
	flag.Parse()

	if *email == "" || *as == "" {
		fmt.Fprintln(os.Stderr, "usage: set_active -email user@example.com [-active=false] -as admin@example.com")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	cfg.API.Fallback = false
	store := session.NewMemory()
	api := gateway.New(cfg.API, gateway.WithTokenSource(store), gateway.WithLogger(log.Named("gateway")))
	ctx := context.Background()

	if _, err := auth.NewService(api, store, log).Login(ctx, auth.Credentials{Email: *as, Password: *password}); err != nil {
		log.Fatal("admin login failed", zap.Error(err))
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
		change := svc.ActivateUser
		if !*active {
			change = svc.DeactivateUser
		}
		if _, err := change(ctx, u.ID); err != nil {
			log.Fatal("state change failed", zap.Int64("user", u.ID), zap.Error(err))
		}
		fmt.Printf("User %s active=%t.\n", *email, *active)
		return
	}
	log.Fatal("no user found", zap.String("email", *email))
}
