package models

import "time"

// TeamAlias maps an alternate spelling of a team name to its canonical name.
// Alias is stored lower-cased; lookups are case-insensitive.
type TeamAlias struct {
	Alias         string    `db:"alias"`
	CanonicalName string    `db:"canonical_name"`
	CreatedAt     time.Time `db:"created_at"`
}
