package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store resolves permissions through the tenant's roles tables.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var allowed bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1
      FROM role_permissions rp
      JOIN permissions p ON rp.permission_id = p.id
      WHERE rp.role_id = $1 AND p.key = $2
    )
  `, roleID, permission).Scan(&allowed)
	if err != nil {
		// a role id that is not a uuid cannot hold any permission
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return false, nil
		}
		return false, fmt.Errorf("check permission %s: %w", permission, err)
	}
	return allowed, nil
}
