// Command seed creates the demo scholar accounts and, with -for, adds them
// as scholar contacts of an existing user. Run it once per deployment.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository/postgres"
	"gallan_chat/internal/service"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type scholar struct {
	username    string
	displayName string
	status      string
}

var scholars = []scholar{
	{username: "mufti_samar", displayName: "Mufti Samar Abbas Qadri", status: "Available for questions after Asr"},
	{username: "mufti_naseer", displayName: "Mufti Naseer udin Naseer", status: "Teaching fiqh and hadith"},
}

func main() {
	password := flag.String("password", "", "password for the scholar accounts")
	forUser := flag.String("for", "", "username that gets the scholars as contacts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.Log.Level, cfg.Environment)

	if cfg.Storage.Backend != config.StoragePostgres {
		appLogger.Fatal("Seeding needs STORAGE_BACKEND=postgres, the memory backend does not outlive this process")
	}
	if *password == "" {
		appLogger.Fatal("-password is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := postgres.Migrate(ctx, dbPool); err != nil {
		appLogger.Fatal("Failed to apply schema", "error", err)
	}

	repos := postgres.New(dbPool, appLogger)
	services := service.NewServices(repos, nil, nil, cfg, appLogger)

	var owner *domain.User
	if *forUser != "" {
		owner, err = services.User.GetUserByUsername(ctx, *forUser)
		if err != nil {
			appLogger.Fatal("Failed to find user", "username", *forUser, "error", err)
		}
	}

	for _, s := range scholars {
		user, err := ensureScholar(ctx, services, s, *password)
		if err != nil {
			appLogger.Fatal("Failed to create scholar", "username", s.username, "error", err)
		}
		appLogger.Info("Scholar ready", "username", user.Username, "user_id", user.ID)

		if owner == nil {
			continue
		}
		if err := addScholarContact(ctx, services, owner.ID, user); err != nil {
			appLogger.Fatal("Failed to add scholar contact", "username", s.username, "error", err)
		}
		appLogger.Info("Scholar contact added", "owner", owner.Username, "scholar", user.Username)
	}
}

func ensureScholar(ctx context.Context, services *service.Services, s scholar, password string) (*domain.User, error) {
	resp, err := services.Auth.Register(ctx, s.username, password, s.displayName)
	if errors.Is(err, errors.ErrConflict) {
		return services.User.GetUserByUsername(ctx, s.username)
	}
	if err != nil {
		return nil, err
	}

	status := s.status
	return services.User.UpdateProfile(ctx, resp.User.ID, service.ProfileUpdate{Status: &status})
}

func addScholarContact(ctx context.Context, services *service.Services, ownerID int64, scholarUser *domain.User) error {
	_, err := services.Contact.AddContact(ctx, ownerID, scholarUser.Username, scholarUser.DisplayName)
	if err != nil && !errors.Is(err, errors.ErrConflict) {
		return err
	}

	flags := domain.ContactFlags{Scholar: true}
	_, err = services.Contact.UpdateContact(ctx, ownerID, scholarUser.ID, service.ContactUpdate{Flags: &flags})
	return err
}
