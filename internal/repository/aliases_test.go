//go:build integration

package repository

import (
	"testing"

	"pickem/engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)

	alias := &models.TeamAlias{Alias: "  USF ", CanonicalName: "South Florida"}
	require.NoError(t, db.Aliases.Upsert(ctx, alias))
	assert.Equal(t, "usf", alias.Alias, "Alias key is stored lower-cased")

	// Re-pointing an alias replaces its canonical name
	require.NoError(t, db.Aliases.Upsert(ctx, &models.TeamAlias{Alias: "usf", CanonicalName: "San Francisco"}))
	require.NoError(t, db.Aliases.Upsert(ctx, &models.TeamAlias{Alias: "Miami (FL)", CanonicalName: "Miami"}))

	aliases, err := db.Aliases.List(ctx)
	require.NoError(t, err)
	require.Len(t, aliases, 2)
	assert.Equal(t, "miami (fl)", aliases[0].Alias)
	assert.Equal(t, "San Francisco", aliases[1].CanonicalName)
}

func TestAliasRepository_Delete(t *testing.T) {
	db, ctx := setupTestDB(t)

	require.NoError(t, db.Aliases.Upsert(ctx, &models.TeamAlias{Alias: "ole miss", CanonicalName: "Mississippi"}))
	require.NoError(t, db.Aliases.Delete(ctx, "Ole Miss"))

	aliases, err := db.Aliases.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	assert.Error(t, db.Aliases.Delete(ctx, "ole miss"), "Deleting a missing alias fails")
}
