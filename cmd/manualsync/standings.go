package main

import (
	"context"
	"encoding/json"
	"io"

	"pickem/engine/internal/models"
)

type standingsReader interface {
	WeeklyStandings(ctx context.Context, season, week int) ([]models.WeeklyEntry, error)
	SeasonStandings(ctx context.Context, season int) ([]models.SeasonEntry, error)
	BowlStandings(ctx context.Context, season int) ([]models.BowlEntry, error)
}

// printStandings writes the scope's leaderboard, plus the season table for a week
func printStandings(ctx context.Context, w io.Writer, r standingsReader, season int, scope models.Scope) error {
	out := map[string]any{"season": season}

	if scope.IsBowl() {
		bowl, err := r.BowlStandings(ctx, season)
		if err != nil {
			return err
		}
		out["bowl"] = bowl
	} else {
		weekly, err := r.WeeklyStandings(ctx, season, scope.Week)
		if err != nil {
			return err
		}
		overall, err := r.SeasonStandings(ctx, season)
		if err != nil {
			return err
		}
		out["week"] = scope.Week
		out["weekly"] = weekly
		out["overall"] = overall
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
