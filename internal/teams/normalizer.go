package teams

import (
	"strings"

	"pickem/engine/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Normalizer resolves raw team names to their canonical spelling
type Normalizer struct {
	cache *AliasCache
}

// NewNormalizer creates a normalizer over an alias cache
func NewNormalizer(cache *AliasCache) *Normalizer {
	return &Normalizer{cache: cache}
}

// Normalize returns the canonical name for a raw team name.
// Unknown names are returned trimmed and unchanged; empty input yields "".
func (n *Normalizer) Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	snap := n.cache.view()
	k := strings.ToLower(trimmed)

	if canonical, ok := snap.aliases[k]; ok {
		return canonical
	}
	if canonical, ok := snap.canonical[k]; ok {
		return canonical
	}

	metrics.RecordPassThrough()
	log.Warn().Str("team", trimmed).Msg("No alias or canonical match for team name, passing through")

	return trimmed
}

// NormalizeBatch normalizes each name, keyed by the raw input
func (n *Normalizer) NormalizeBatch(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if _, done := out[name]; done {
			continue
		}
		out[name] = n.Normalize(name)
	}
	return out
}

// AreEqual reports whether two names resolve to the same team.
// Empty names never match.
func (n *Normalizer) AreEqual(a, b string) bool {
	na, nb := n.Normalize(a), n.Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.EqualFold(na, nb)
}

// AllCanonicalNames returns the set of canonical names known to the alias table
func (n *Normalizer) AllCanonicalNames() map[string]struct{} {
	snap := n.cache.view()
	names := make(map[string]struct{}, len(snap.canonical))
	for _, canonical := range snap.canonical {
		names[canonical] = struct{}{}
	}
	return names
}
