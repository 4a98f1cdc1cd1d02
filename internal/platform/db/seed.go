package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"nomina/internal/domain/auth"
	"nomina/internal/platform/config"
)

// Seed makes sure the configured tenant, the permission catalogue, the default
// roles and the bootstrap HR user exist. It is safe to run on every start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, log *zap.Logger) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tenantID, err := ensureTenant(ctx, tx, cfg.SeedTenantName)
		if err != nil {
			return err
		}
		permIDs, err := ensurePermissions(ctx, tx)
		if err != nil {
			return err
		}
		roleIDs, err := ensureRoles(ctx, tx, tenantID, permIDs)
		if err != nil {
			return err
		}
		created, err := ensureAdminUser(ctx, tx, tenantID, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			return err
		}
		log.Info("seed complete",
			zap.String("tenantId", tenantID),
			zap.Int("roles", len(roleIDs)),
			zap.Bool("adminCreated", created),
		)
		return nil
	})
}

func ensureTenant(ctx context.Context, tx pgx.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
    INSERT INTO tenants (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	return id, err
}

func ensurePermissions(ctx context.Context, tx pgx.Tx) (map[string]string, error) {
	ids := make(map[string]string, len(auth.DefaultPermissions))
	for _, perm := range auth.DefaultPermissions {
		var id string
		err := tx.QueryRow(ctx, `
      INSERT INTO permissions (key) VALUES ($1)
      ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key
      RETURNING id
    `, perm).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[perm] = id
	}
	return ids, nil
}

func ensureRoles(ctx context.Context, tx pgx.Tx, tenantID string, permIDs map[string]string) (map[string]string, error) {
	roleIDs := make(map[string]string, len(auth.RolePermissions))
	for roleName, perms := range auth.RolePermissions {
		var roleID string
		err := tx.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, roleName).Scan(&roleID)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = roleID

		for _, permKey := range perms {
			permID, ok := permIDs[permKey]
			if !ok {
				return nil, errors.New("permission not found: " + permKey)
			}
			if _, err := tx.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID); err != nil {
				return nil, err
			}
		}
	}
	return roleIDs, nil
}

func ensureAdminUser(ctx context.Context, tx pgx.Tx, tenantID, roleID, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return false, nil
	}

	var id string
	err := tx.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	_, err = tx.Exec(ctx, "INSERT INTO users (tenant_id, email, password_hash, role_id) VALUES ($1, $2, $3, $4)", tenantID, email, hash, roleID)
	return err == nil, err
}

// ListTenants returns every tenant id; scheduled jobs fan out over it.
func ListTenants(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
