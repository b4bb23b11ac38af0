package repository

import (
	"context"
	"fmt"
	"strings"

	"pickem/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// AliasRepository handles team alias database operations
type AliasRepository struct {
	db *Database
}

// Upsert stores an alias, lower-casing and trimming the alias key
func (r *AliasRepository) Upsert(ctx context.Context, alias *models.TeamAlias) error {
	alias.Alias = strings.ToLower(strings.TrimSpace(alias.Alias))
	alias.CanonicalName = strings.TrimSpace(alias.CanonicalName)

	query := `
		INSERT INTO team_aliases (alias, canonical_name)
		VALUES ($1, $2)
		ON CONFLICT (alias) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, alias.Alias, alias.CanonicalName).Scan(&alias.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert team alias: %w", err)
	}

	log.Debug().
		Str("alias", alias.Alias).
		Str("canonical", alias.CanonicalName).
		Msg("Team alias saved")

	return nil
}

// List retrieves every alias
func (r *AliasRepository) List(ctx context.Context) ([]*models.TeamAlias, error) {
	query := `
		SELECT alias, canonical_name, created_at
		FROM team_aliases
		ORDER BY canonical_name, alias
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*models.TeamAlias
	for rows.Next() {
		var alias models.TeamAlias
		if err := rows.Scan(&alias.Alias, &alias.CanonicalName, &alias.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team alias: %w", err)
		}
		aliases = append(aliases, &alias)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team aliases: %w", err)
	}

	return aliases, nil
}

// Delete removes an alias
func (r *AliasRepository) Delete(ctx context.Context, alias string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM team_aliases WHERE alias = $1`, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return fmt.Errorf("failed to delete team alias: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("team alias not found: %s", alias)
	}

	return nil
}
