package postgres

import (
	"context"
	"errors"
	"fmt"

	"horizonx-console/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT
			u.id,
			u.name,
			u.email,
			u.password,
			u.role_id,
			u.created_at,
			u.updated_at,
			r.id,
			r.name
		FROM users u
		LEFT JOIN roles r ON u.role_id = r.id
		WHERE LOWER(u.email) = LOWER($1) AND u.deleted_at IS NULL
	`

	row := r.db.QueryRow(ctx, query, email)

	var user domain.User
	var role domain.Role

	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.RoleID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&role.ID,
		&role.Name,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.Role = &role

	permissions, err := r.permissionsForRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	user.Permissions = permissions

	return &user, nil
}

func (r *UserRepository) permissionsForRole(ctx context.Context, roleID int64) ([]domain.Permission, error) {
	query := `
		SELECT p.id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name ASC
	`

	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	permissions := []domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan permissions: %w", err)
		}
		permissions = append(permissions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}
