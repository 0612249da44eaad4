package main

import (
	"context"
	"flag"
	"os"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "", "account to reset (defaults to SEED_ADMIN_EMAIL)")
	password := flag.String("password", "", "new password (defaults to SEED_ADMIN_PASSWORD)")
	flag.Parse()

	// 1. Load Env
	cfg := config.Load()
	log := logger.L()
	if *email == "" {
		*email = cfg.Seed.AdminEmail
	}
	if *password == "" {
		*password = cfg.Seed.AdminPassword
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Error("user not found", "email", *email, "error", err)
		os.Exit(1)
	}

	// 4. Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("hash password", "error", err)
		os.Exit(1)
	}

	// 5. Update and sign out existing sessions
	if err := users.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		log.Error("update password", "error", err)
		os.Exit(1)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.New().String()); err != nil {
		log.Error("revoke sessions", "error", err)
		os.Exit(1)
	}

	log.Info("password reset", "email", *email)
}
