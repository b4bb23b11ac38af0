package repository

import (
	"context"
	"errors"
	"fmt"

	"pickem/engine/internal/models"

	"github.com/jackc/pgx/v5"
)

// UserRepository handles participant lookups
type UserRepository struct {
	db *Database
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (display_name)
		VALUES ($1)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, user.DisplayName).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user, returning nil if the user does not exist
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, display_name, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.DisplayName, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// DisplayNames returns display names keyed by user ID for the given users
func (r *UserRepository) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT id, display_name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan display name: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return names, nil
}

// Delete removes a user; the user's picks are removed by cascade
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: id=%d", id)
	}

	return nil
}
