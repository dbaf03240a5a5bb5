package db

import (
	"context"
	"fmt"

	"leavetrack/internal/platform/config"
)

type AdminSeeder interface {
	EnsureAdmin(ctx context.Context, email, password string) error
}

// Seed creates the configured administrator account. It works against any
// store driver since it goes through the user service.
func Seed(ctx context.Context, users AdminSeeder, cfg config.Config) error {
	if cfg.SeedAdminEmail == "" {
		return nil
	}
	if err := users.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("seed admin %s: %w", cfg.SeedAdminEmail, err)
	}
	return nil
}
