package main

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
)

// adminRoleCode is the seeded global role, see migrations/000001_init.up.sql
const adminRoleCode = "ADMIN"

// createAdmin creates a user holding the ADMIN role. Migrations seed roles only.
func createAdmin(cfg *config.Config, username, email, password string) (*identity.User, error) {
	db, err := persistence.NewDatabase(&cfg.Database, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := persistence.NewGormUserRepository(db.DB)
	roles := persistence.NewGormRoleRepository(db.DB)

	exists, err := users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user %q already exists", username)
	}

	role, err := roles.FindByCode(ctx, adminRoleCode)
	if err != nil {
		return nil, fmt.Errorf("find role %s (run migrate up first): %w", adminRoleCode, err)
	}

	user, err := identity.NewUser(username, email, password)
	if err != nil {
		return nil, err
	}
	if err := user.SetRoles([]uuid.UUID{role.ID}); err != nil {
		return nil, err
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
