package models

import (
	"errors"
	"math"
)

// Rejection reasons reported per item in batch results
const (
	ReasonNotFound            = "game not found"
	ReasonLocked              = "game is locked"
	ReasonInvalidSelection    = "invalid selection"
	ReasonInvalidOutrightPick = "invalid outright pick"
	ReasonInvalidConfidence   = "confidence points must be positive"
	ReasonDuplicateConfidence = "duplicate confidence points"
	ReasonNegativeScore       = "scores must be non-negative"
	ReasonWrongScope          = "game does not belong to the requested season and scope"
	ReasonScoreOutOfRange     = "score is out of range"
	ReasonDuplicateGame       = "game listed more than once"
	ReasonUserNotFound        = "user not found"
	ReasonDuplicateResult     = "duplicate external result"
)

// MaxScore is the largest score a game result can store
const MaxScore = math.MaxInt32

// Errors returned by single result entry
var (
	ErrNegativeScore   = errors.New(ReasonNegativeScore)
	ErrScoreOutOfRange = errors.New(ReasonScoreOutOfRange)
)

// ItemRejection explains why one item of a batch was not applied.
// Ref is the game ID the item referred to.
type ItemRejection struct {
	Ref    int64  `json:"ref"`
	Reason string `json:"reason"`
}

// SubmissionResult is the outcome of a pick submission batch
type SubmissionResult struct {
	Accepted []int64         `json:"accepted"`
	Rejected []ItemRejection `json:"rejected"`
}

// AcceptedCount returns the number of accepted items
func (r *SubmissionResult) AcceptedCount() int {
	return len(r.Accepted)
}

// RejectedCount returns the number of rejected items
func (r *SubmissionResult) RejectedCount() int {
	return len(r.Rejected)
}

// ResultInput is one final score to record, relative to the favorite
type ResultInput struct {
	GameID        int64 `json:"game_id"`
	FavoriteScore int   `json:"favorite_score"`
	UnderdogScore int   `json:"underdog_score"`
}

// BulkResult is the outcome of a bulk result entry
type BulkResult struct {
	Entered []int64         `json:"entered"`
	Failed  []ItemRejection `json:"failed"`
}

// EnteredCount returns the number of results recorded
func (r *BulkResult) EnteredCount() int {
	return len(r.Entered)
}

// FailedCount returns the number of items that failed
func (r *BulkResult) FailedCount() int {
	return len(r.Failed)
}
