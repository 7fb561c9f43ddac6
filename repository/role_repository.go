package repository

import (
	"context"
	"errors"
	"fmt"

	"giveaway/database"
	"giveaway/models"

	"github.com/jackc/pgx/v5"
)

// RoleRepository implements service.RoleRepository
type RoleRepository struct {
	q queryable
}

// NewRoleRepository creates a role repository on the pool
func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{q: db.Pool}
}

func newRoleRepositoryWithTx(tx queryable) *RoleRepository {
	return &RoleRepository{q: tx}
}

// Upsert assigns a role. Re-assigning the same role changes nothing.
func (r *RoleRepository) Upsert(ctx context.Context, userID string, role models.Role, grantedBy string) (bool, error) {
	query := `
		INSERT INTO user_roles (user_id, role, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET role = EXCLUDED.role, granted_by = EXCLUDED.granted_by, updated_at = NOW()
		WHERE user_roles.role IS DISTINCT FROM EXCLUDED.role
	`

	tag, err := r.q.Exec(ctx, query, userID, role, grantedBy)
	if err != nil {
		return false, fmt.Errorf("failed to set role %s for user %s: %w", role, userID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByUserID returns the user's role row, or nil
func (r *RoleRepository) GetByUserID(ctx context.Context, userID string) (*models.UserRole, error) {
	query := `SELECT user_id, role, granted_by, updated_at FROM user_roles WHERE user_id = $1`

	var ur models.UserRole
	err := r.q.QueryRow(ctx, query, userID).Scan(&ur.UserID, &ur.Role, &ur.GrantedBy, &ur.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role for user %s: %w", userID, err)
	}

	return &ur, nil
}

// ListByRole returns the users holding role
func (r *RoleRepository) ListByRole(ctx context.Context, role models.Role) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id FROM user_roles WHERE role = $1 ORDER BY user_id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with role %s: %w", role, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan role holders: %w", err)
	}
	return ids, nil
}
