package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/defect-tracker/config"
	"github.com/defect-tracker/models"
	"go.uber.org/zap"
)

// Seed makes sure the built-in roles and the default administrator exist.
// Running it again changes nothing.
func Seed(ctx context.Context, identity *IdentityService, cfg config.SeedCfg, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, name := range models.DefaultRoles {
		exists, err := identity.RoleExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := identity.CreateRole(ctx, name); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		log.Info("Created role", zap.String("role", name))
	}

	if cfg.AdminEmail == "" {
		return nil
	}

	admin, err := identity.FindByEmail(ctx, cfg.AdminEmail)
	switch {
	case errors.Is(err, ErrNotFound):
		admin = &models.User{UserName: cfg.AdminEmail, Email: cfg.AdminEmail}
		if err := identity.CreateUser(ctx, admin, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Info("Created default administrator", zap.String("email", cfg.AdminEmail))
	case err != nil:
		return err
	}

	if err := identity.AddToRoles(ctx, admin, models.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	return nil
}
