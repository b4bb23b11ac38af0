package standings

import (
	"context"
	"fmt"
	"sort"

	"pickem/engine/internal/models"
)

// GameStore lists games
type GameStore interface {
	ListByScope(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error)
	ListBySeason(ctx context.Context, season int, kind models.GameKind) ([]*models.Game, error)
}

// PickStore lists weekly picks
type PickStore interface {
	ListByWeek(ctx context.Context, season, week int) ([]*models.Pick, error)
	ListBySeason(ctx context.Context, season int) ([]*models.Pick, error)
	ListByUser(ctx context.Context, userID int64, season int) ([]*models.Pick, error)
}

// BowlPickStore lists bowl picks
type BowlPickStore interface {
	ListBySeason(ctx context.Context, season int) ([]*models.BowlPick, error)
	ListByUser(ctx context.Context, userID int64, season int) ([]*models.BowlPick, error)
}

// UserStore resolves display names
type UserStore interface {
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Aggregator computes leaderboards on demand from the current games and picks.
// Only games with a result contribute.
type Aggregator struct {
	games        GameStore
	picks        PickStore
	bowlPicks    BowlPickStore
	users        UserStore
	picksPerWeek int
}

// NewAggregator creates an aggregator. picksPerWeek is the quota a perfect week must fill.
func NewAggregator(games GameStore, picks PickStore, bowlPicks BowlPickStore, users UserStore, picksPerWeek int) *Aggregator {
	return &Aggregator{
		games:        games,
		picks:        picks,
		bowlPicks:    bowlPicks,
		users:        users,
		picksPerWeek: picksPerWeek,
	}
}

// weekTally is one user's record for one week
type weekTally struct {
	wins   float64
	covers int
	losses int
	pushes int
	picked int
}

func (t *weekTally) add(pick *models.Pick, game *models.Game) {
	t.picked++
	if game == nil || !game.HasResult() {
		return
	}
	switch {
	case game.IsPush:
		t.wins += 0.5
		t.pushes++
	case pick.SelectedTeam == game.SpreadWinnerName.String:
		t.wins++
		t.covers++
	default:
		t.losses++
	}
}

func (a *Aggregator) perfect(t *weekTally) bool {
	return t.picked == a.picksPerWeek && t.covers == a.picksPerWeek
}

// WeeklyStandings ranks every user who picked in the week by wins, then fewest losses
func (a *Aggregator) WeeklyStandings(ctx context.Context, season, week int) ([]models.WeeklyEntry, error) {
	games, err := a.games.ListByScope(ctx, season, models.WeekScope(week))
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	picks, err := a.picks.ListByWeek(ctx, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}

	byID := indexGames(games)
	tallies := make(map[int64]*weekTally)
	for _, pick := range picks {
		t, ok := tallies[pick.UserID]
		if !ok {
			t = &weekTally{}
			tallies[pick.UserID] = t
		}
		t.add(pick, byID[pick.GameID])
	}

	names, err := a.displayNames(ctx, keys(tallies))
	if err != nil {
		return nil, err
	}

	entries := make([]models.WeeklyEntry, 0, len(tallies))
	for userID, t := range tallies {
		entries = append(entries, models.WeeklyEntry{
			UserID:      userID,
			DisplayName: names[userID],
			Wins:        t.wins,
			Losses:      t.losses,
			Pushes:      t.pushes,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		x, y := entries[i], entries[j]
		if x.Wins != y.Wins {
			return x.Wins > y.Wins
		}
		if x.Losses != y.Losses {
			return x.Losses < y.Losses
		}
		return tieBreak(x.DisplayName, y.DisplayName, x.UserID, y.UserID)
	})

	return entries, nil
}

// SeasonStandings aggregates every week of the season by total wins, then win percentage
func (a *Aggregator) SeasonStandings(ctx context.Context, season int) ([]models.SeasonEntry, error) {
	games, err := a.games.ListBySeason(ctx, season, models.KindWeekly)
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	picks, err := a.picks.ListBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}

	byID := indexGames(games)
	weekly := make(map[int64]map[int]*weekTally)
	for _, pick := range picks {
		weeks, ok := weekly[pick.UserID]
		if !ok {
			weeks = make(map[int]*weekTally)
			weekly[pick.UserID] = weeks
		}
		t, ok := weeks[pick.Week]
		if !ok {
			t = &weekTally{}
			weeks[pick.Week] = t
		}
		t.add(pick, byID[pick.GameID])
	}

	names, err := a.displayNames(ctx, keys(weekly))
	if err != nil {
		return nil, err
	}

	entries := make([]models.SeasonEntry, 0, len(weekly))
	for userID, weeks := range weekly {
		entry := models.SeasonEntry{
			UserID:      userID,
			DisplayName: names[userID],
			WeeksPlayed: len(weeks),
		}
		for _, t := range weeks {
			entry.TotalWins += t.wins
			entry.TotalLosses += t.losses
			if a.perfect(t) {
				entry.PerfectWeeks++
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		x, y := &entries[i], &entries[j]
		if x.TotalWins != y.TotalWins {
			return x.TotalWins > y.TotalWins
		}
		if px, py := x.WinPercentage(), y.WinPercentage(); px != py {
			return px > py
		}
		return tieBreak(x.DisplayName, y.DisplayName, x.UserID, y.UserID)
	})

	return entries, nil
}

// BowlStandings ranks the bowl confidence pool by points.
// A correct spread pick earns its confidence value; pushes and losses earn nothing.
func (a *Aggregator) BowlStandings(ctx context.Context, season int) ([]models.BowlEntry, error) {
	games, err := a.games.ListBySeason(ctx, season, models.KindBowl)
	if err != nil {
		return nil, fmt.Errorf("failed to load bowl games: %w", err)
	}
	picks, err := a.bowlPicks.ListBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load bowl picks: %w", err)
	}

	byID := indexGames(games)
	totals := make(map[int64]*models.BowlEntry)
	for _, pick := range picks {
		entry, ok := totals[pick.UserID]
		if !ok {
			entry = &models.BowlEntry{UserID: pick.UserID}
			totals[pick.UserID] = entry
		}

		entry.TotalGames++
		entry.MaxPossiblePoints += pick.ConfidencePoints

		detail := scoreBowlPick(pick, byID[pick.GameID])
		if !detail.Resolved {
			continue
		}
		entry.GamesCompleted++
		entry.SpreadPoints += detail.PointsEarned
		switch {
		case detail.IsPush:
			entry.SpreadPushes++
		case detail.SpreadCorrect:
			entry.SpreadWins++
		default:
			entry.SpreadLosses++
		}
		if detail.OutrightCorrect {
			entry.OutrightWins++
		}
	}

	names, err := a.displayNames(ctx, keys(totals))
	if err != nil {
		return nil, err
	}

	entries := make([]models.BowlEntry, 0, len(totals))
	for userID, entry := range totals {
		entry.DisplayName = names[userID]
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		x, y := entries[i], entries[j]
		if x.SpreadPoints != y.SpreadPoints {
			return x.SpreadPoints > y.SpreadPoints
		}
		return tieBreak(x.DisplayName, y.DisplayName, x.UserID, y.UserID)
	})

	return entries, nil
}

// UserHistory returns a user's pick-by-pick breakdown for the season
func (a *Aggregator) UserHistory(ctx context.Context, userID int64, season int) (*models.UserHistory, error) {
	weeklyGames, err := a.games.ListBySeason(ctx, season, models.KindWeekly)
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	bowlGames, err := a.games.ListBySeason(ctx, season, models.KindBowl)
	if err != nil {
		return nil, fmt.Errorf("failed to load bowl games: %w", err)
	}
	picks, err := a.picks.ListByUser(ctx, userID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}
	bowlPicks, err := a.bowlPicks.ListByUser(ctx, userID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load bowl picks: %w", err)
	}

	names, err := a.displayNames(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}

	history := &models.UserHistory{
		UserID:      userID,
		DisplayName: names[userID],
		Season:      season,
		Weekly:      make([]models.WeeklyPickDetail, 0, len(picks)),
		Bowl:        make([]models.BowlPickDetail, 0, len(bowlPicks)),
	}

	weeklyByID := indexGames(weeklyGames)
	for _, pick := range picks {
		game := weeklyByID[pick.GameID]
		if game == nil {
			continue
		}
		history.Weekly = append(history.Weekly, scoreWeeklyPick(pick, game))
	}
	sort.SliceStable(history.Weekly, func(i, j int) bool {
		return history.Weekly[i].Week < history.Weekly[j].Week
	})

	bowlByID := indexGames(bowlGames)
	for _, pick := range bowlPicks {
		game := bowlByID[pick.GameID]
		if game == nil {
			continue
		}
		history.Bowl = append(history.Bowl, scoreBowlPick(pick, game))
	}
	sort.Slice(history.Bowl, func(i, j int) bool {
		return history.Bowl[i].GameNumber < history.Bowl[j].GameNumber
	})

	return history, nil
}

func scoreWeeklyPick(pick *models.Pick, game *models.Game) models.WeeklyPickDetail {
	detail := models.WeeklyPickDetail{
		GameID:       game.ID,
		Week:         game.Week(),
		Favorite:     game.FavoriteName,
		Underdog:     game.UnderdogName,
		Line:         game.Line,
		SelectedTeam: pick.SelectedTeam,
		Resolved:     game.HasResult(),
	}
	if !detail.Resolved {
		return detail
	}

	switch {
	case game.IsPush:
		detail.IsPush = true
		detail.Points = 0.5
	case pick.SelectedTeam == game.SpreadWinnerName.String:
		detail.Correct = true
		detail.Points = 1
	}
	return detail
}

// scoreBowlPick settles one bowl pick. A nil game is treated as unresolved.
func scoreBowlPick(pick *models.BowlPick, game *models.Game) models.BowlPickDetail {
	detail := models.BowlPickDetail{
		GameID:             pick.GameID,
		SpreadPick:         pick.SpreadPick,
		OutrightWinnerPick: pick.OutrightWinnerPick,
		ConfidencePoints:   pick.ConfidencePoints,
	}
	if game == nil {
		return detail
	}

	detail.GameNumber = game.ScopeKey
	detail.BowlName = game.BowlName.String
	detail.Favorite = game.FavoriteName
	detail.Underdog = game.UnderdogName
	detail.Line = game.Line
	detail.Resolved = game.HasResult()
	if !detail.Resolved {
		return detail
	}

	detail.IsPush = game.IsPush
	detail.SpreadCorrect = !game.IsPush && pick.SpreadPick == game.SpreadWinnerName.String
	detail.OutrightCorrect = game.OutrightWinnerName.Valid && pick.OutrightWinnerPick == game.OutrightWinnerName.String
	if detail.SpreadCorrect {
		detail.PointsEarned = pick.ConfidencePoints
	}
	return detail
}

func (a *Aggregator) displayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names, err := a.users.DisplayNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load display names: %w", err)
	}
	return names, nil
}

func indexGames(games []*models.Game) map[int64]*models.Game {
	byID := make(map[int64]*models.Game, len(games))
	for _, game := range games {
		byID[game.ID] = game
	}
	return byID
}

func keys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func tieBreak(nameA, nameB string, idA, idB int64) bool {
	if nameA != nameB {
		return nameA < nameB
	}
	return idA < idB
}
