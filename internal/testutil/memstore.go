// Package testutil provides in-memory stand-ins for the postgres repositories.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pickem/engine/internal/models"
)

// ErrUnavailable simulates a persistence outage
var ErrUnavailable = errors.New("store unavailable")

// Store mirrors repository.Database with in-memory repositories
type Store struct {
	Games     *GameStore
	Picks     *PickStore
	BowlPicks *BowlPickStore
	Users     *UserStore
	Aliases   *AliasStore
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		Games:     &GameStore{games: map[int64]*models.Game{}},
		Picks:     &PickStore{picks: map[[2]int64]*models.Pick{}},
		BowlPicks: &BowlPickStore{picks: map[[2]int64]*models.BowlPick{}},
		Users:     &UserStore{users: map[int64]*models.User{}},
		Aliases:   &AliasStore{},
	}
}

// GameStore is an in-memory game repository
type GameStore struct {
	mu     sync.Mutex
	games  map[int64]*models.Game
	nextID int64
	Fail   bool
}

func (s *GameStore) UpsertLine(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrUnavailable
	}

	for _, existing := range s.games {
		if existing.Season == game.Season && existing.Kind == game.Kind && existing.ScopeKey == game.ScopeKey &&
			existing.FavoriteName == game.FavoriteName && existing.UnderdogName == game.UnderdogName {
			existing.Line = game.Line
			existing.KickoffTime = game.KickoffTime
			if game.BowlName.Valid {
				existing.BowlName = game.BowlName
			}
			*game = *existing
			return nil
		}
	}

	s.nextID++
	game.ID = s.nextID
	stored := *game
	s.games[stored.ID] = &stored
	return nil
}

func (s *GameStore) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	game, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	copied := *game
	return &copied, nil
}

func (s *GameStore) ListByScope(ctx context.Context, season int, scope models.Scope) ([]*models.Game, error) {
	return s.filter(func(g *models.Game) bool { return g.InScope(season, scope) })
}

func (s *GameStore) ListBySeason(ctx context.Context, season int, kind models.GameKind) ([]*models.Game, error) {
	return s.filter(func(g *models.Game) bool { return g.Season == season && g.Kind == kind })
}

func (s *GameStore) ListPending(ctx context.Context, season int, before time.Time) ([]*models.Game, error) {
	return s.filter(func(g *models.Game) bool {
		return g.Season == season && !g.KickoffTime.After(before) && !g.HasResult()
	})
}

func (s *GameStore) filter(keep func(g *models.Game) bool) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	var games []*models.Game
	for _, game := range s.games {
		if keep(game) {
			copied := *game
			games = append(games, &copied)
		}
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].ScopeKey != games[j].ScopeKey {
			return games[i].ScopeKey < games[j].ScopeKey
		}
		return games[i].ID < games[j].ID
	})
	return games, nil
}

func (s *GameStore) SaveResult(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrUnavailable
	}

	existing, ok := s.games[game.ID]
	if !ok {
		return fmt.Errorf("game not found: id=%d", game.ID)
	}
	existing.FavoriteScore = game.FavoriteScore
	existing.UnderdogScore = game.UnderdogScore
	existing.SpreadWinnerName = game.SpreadWinnerName
	existing.IsPush = game.IsPush
	existing.OutrightWinnerName = game.OutrightWinnerName
	existing.ResolvedAt = game.ResolvedAt
	existing.ResolvedBy = game.ResolvedBy
	return nil
}

// Count returns the number of stored games
func (s *GameStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// PickStore is an in-memory weekly pick repository keyed by (user, game)
type PickStore struct {
	mu     sync.Mutex
	picks  map[[2]int64]*models.Pick
	nextID int64
	Fail   bool
}

func (s *PickStore) Upsert(ctx context.Context, pick *models.Pick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrUnavailable
	}

	k := [2]int64{pick.UserID, pick.GameID}
	if existing, ok := s.picks[k]; ok {
		existing.SelectedTeam = pick.SelectedTeam
		existing.UpdatedAt = sql.NullTime{Time: pick.SubmittedAt, Valid: true}
		*pick = *existing
		return nil
	}

	s.nextID++
	pick.ID = s.nextID
	stored := *pick
	s.picks[k] = &stored
	return nil
}

func (s *PickStore) GetByUserAndGame(ctx context.Context, userID, gameID int64) (*models.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	pick, ok := s.picks[[2]int64{userID, gameID}]
	if !ok {
		return nil, nil
	}
	copied := *pick
	return &copied, nil
}

func (s *PickStore) ListByWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool { return p.Season == season && p.Week == week })
}

func (s *PickStore) ListBySeason(ctx context.Context, season int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool { return p.Season == season })
}

func (s *PickStore) ListByUser(ctx context.Context, userID int64, season int) ([]*models.Pick, error) {
	return s.filter(func(p *models.Pick) bool { return p.UserID == userID && p.Season == season })
}

func (s *PickStore) filter(keep func(p *models.Pick) bool) ([]*models.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	var picks []*models.Pick
	for _, pick := range s.picks {
		if keep(pick) {
			copied := *pick
			picks = append(picks, &copied)
		}
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].ID < picks[j].ID })
	return picks, nil
}

// Count returns the number of stored picks
func (s *PickStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.picks)
}

// BowlPickStore is an in-memory bowl pick repository
type BowlPickStore struct {
	mu     sync.Mutex
	picks  map[[2]int64]*models.BowlPick
	nextID int64
	Fail   bool
}

// UpsertBatch applies the batch and rolls it back if confidence values collide
func (s *BowlPickStore) UpsertBatch(ctx context.Context, picks []*models.BowlPick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrUnavailable
	}

	staged := make(map[[2]int64]*models.BowlPick, len(s.picks))
	for k, v := range s.picks {
		copied := *v
		staged[k] = &copied
	}

	nextID := s.nextID
	for _, pick := range picks {
		k := [2]int64{pick.UserID, pick.GameID}
		if existing, ok := staged[k]; ok {
			existing.SpreadPick = pick.SpreadPick
			existing.ConfidencePoints = pick.ConfidencePoints
			existing.OutrightWinnerPick = pick.OutrightWinnerPick
			existing.UpdatedAt = sql.NullTime{Time: pick.SubmittedAt, Valid: true}
			continue
		}
		nextID++
		stored := *pick
		stored.ID = nextID
		staged[k] = &stored
	}

	seen := map[[3]int64]bool{}
	for _, pick := range staged {
		k := [3]int64{pick.UserID, int64(pick.Season), int64(pick.ConfidencePoints)}
		if seen[k] {
			return errors.New("duplicate key value violates unique constraint \"bowl_picks_confidence_unique\"")
		}
		seen[k] = true
	}

	s.picks = staged
	s.nextID = nextID
	for _, pick := range picks {
		*pick = *staged[[2]int64{pick.UserID, pick.GameID}]
	}
	return nil
}

func (s *BowlPickStore) ListByUser(ctx context.Context, userID int64, season int) ([]*models.BowlPick, error) {
	return s.filter(func(p *models.BowlPick) bool { return p.UserID == userID && p.Season == season })
}

func (s *BowlPickStore) ListBySeason(ctx context.Context, season int) ([]*models.BowlPick, error) {
	return s.filter(func(p *models.BowlPick) bool { return p.Season == season })
}

func (s *BowlPickStore) filter(keep func(p *models.BowlPick) bool) ([]*models.BowlPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	var picks []*models.BowlPick
	for _, pick := range s.picks {
		if keep(pick) {
			copied := *pick
			picks = append(picks, &copied)
		}
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].ConfidencePoints > picks[j].ConfidencePoints })
	return picks, nil
}

// Count returns the number of stored bowl picks
func (s *BowlPickStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.picks)
}

// UserStore is an in-memory user repository
type UserStore struct {
	mu    sync.Mutex
	users map[int64]*models.User
	Fail  bool
}

// Add registers a user
func (s *UserStore) Add(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, DisplayName: name}
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnavailable
	}

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *UserStore) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			names[id] = user.DisplayName
		}
	}
	return names, nil
}

// AliasStore is an in-memory alias table
type AliasStore struct {
	mu      sync.Mutex
	aliases []*models.TeamAlias
}

// Add appends an alias
func (s *AliasStore) Add(alias, canonical string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases = append(s.aliases, &models.TeamAlias{Alias: alias, CanonicalName: canonical})
}

func (s *AliasStore) List(ctx context.Context) ([]*models.TeamAlias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TeamAlias(nil), s.aliases...), nil
}
