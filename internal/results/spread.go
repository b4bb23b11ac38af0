package results

import "math"

// CalculateSpreadWinner settles a game against the spread.
// line is relative to the favorite (zero or negative). The winner is empty on a push.
func CalculateSpreadWinner(favorite, underdog string, line float64, favoriteScore, underdogScore int) (string, bool) {
	// Lines carry one decimal place; work in tenths of a point.
	margin := (favoriteScore-underdogScore)*10 + int(math.Round(line*10))

	switch {
	case margin > 0:
		return favorite, false
	case margin < 0:
		return underdog, false
	default:
		return "", true
	}
}

// outrightWinner returns the higher scorer, empty on a tie
func outrightWinner(favorite, underdog string, favoriteScore, underdogScore int) string {
	switch {
	case favoriteScore > underdogScore:
		return favorite
	case underdogScore > favoriteScore:
		return underdog
	default:
		return ""
	}
}
