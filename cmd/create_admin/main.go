package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"enquirydesk/internal/config"
	"enquirydesk/internal/logging"
	"enquirydesk/internal/services"
	"enquirydesk/internal/store"
	"enquirydesk/internal/util"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", "", "admin email address")
	fullName := flag.String("full-name", "", "display name")
	password := flag.String("password", "", "password (defaults to $ADMIN_PASSWORD)")
	replace := flag.Bool("replace", false, "overwrite an existing account with the same username")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "a password is required: pass -password or set ADMIN_PASSWORD")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "enquirydesk-create-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	kv, closeStore, err := store.Open(ctx, &cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	tokens := util.NewTokenIssuer(cfg.Auth.SecretKey, time.Duration(cfg.Auth.TokenExpiryMinutes)*time.Minute)
	auth := services.NewAuthService(kv, tokens, logger)

	user, err := auth.CreateAdmin(ctx, services.CreateAdminInput{
		Username: *username,
		Email:    *email,
		FullName: *fullName,
		Password: *password,
		Replace:  *replace,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
		_ = closeStore()
		os.Exit(1)
	}

	fmt.Printf("Admin user %q created in the %s store.\n", user.Username, cfg.Store.Backend)
}
