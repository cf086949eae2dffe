package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/security"
)

type AdminIdentities interface {
	Create(ctx context.Context, email, passwordHash string, nickname *string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AdminProfiles interface {
	SetRole(ctx context.Context, id string, role profile.Role) error
}

// EnsureAdminUser creates the bootstrap admin from ADMIN_EMAIL/ADMIN_PASSWORD when it
// does not exist yet. An existing account with that email is promoted, never rehashed.
func EnsureAdminUser(ctx context.Context, ids AdminIdentities, profiles AdminProfiles, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	u, err := ids.GetByEmail(ctx, email)

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}

		hash, err := security.HashPassword(cfg.AdminPassword)
		if err != nil {
			return err
		}

		name := cfg.AdminName
		u, err = ids.Create(ctx, email, hash, &name)
		if err != nil {
			return err
		}

		log.InfoContext(ctx, "admin user created", "user_id", u.ID)
	}

	return profiles.SetRole(ctx, u.ID, profile.RoleAdmin)
}
