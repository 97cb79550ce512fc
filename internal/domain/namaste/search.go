package namaste

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ayuniq/ayuniq/internal/platform/similarity"
)

// Match tier scores.
const (
	scoreExactCode  = 1.0
	scoreExactToken = 0.95
	scorePrefix     = 0.80
	scoreSubstring  = 0.60
	fuzzyThreshold  = 0.5
	fuzzyWeight     = 0.4
	definitionBoost = 1.1
	minQueryLength  = 2
	defaultLimit    = 20
)

// SearchResult is a term with its relevance for a query.
type SearchResult struct {
	Term  *Term   `json:"term"`
	Score float64 `json:"relevanceScore"`
}

// Search ranks terms against query and returns at most limit results,
// best first. Queries shorter than two characters return nothing.
func (s *Store) Search(query string, limit int) []SearchResult {
	q := lowerFold(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < minQueryLength {
		return []SearchResult{}
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	terms := s.Snapshot()
	results := make([]SearchResult, 0)
	for _, t := range terms {
		score := relevance(t, q)
		if score <= 0 {
			continue
		}
		if t.Definition != "" {
			score = similarity.Clamp(score*definitionBoost, 0, 1)
		}
		results = append(results, SearchResult{Term: t, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func relevance(t *Term, q string) float64 {
	if strings.EqualFold(t.Code, q) {
		return scoreExactCode
	}
	if len(t.SearchTokens) == 0 {
		return 0
	}
	for _, tok := range t.SearchTokens {
		if tok == q {
			return scoreExactToken
		}
	}
	for _, tok := range t.SearchTokens {
		if strings.HasPrefix(tok, q) {
			return scorePrefix
		}
	}
	for _, tok := range t.SearchTokens {
		if strings.Contains(tok, q) {
			return scoreSubstring
		}
	}

	best := 0.0
	for _, tok := range t.SearchTokens {
		if sim := similarity.Score(q, tok, similarity.SearchContainmentScore); sim > best {
			best = sim
		}
	}
	if best > fuzzyThreshold {
		return best * fuzzyWeight
	}
	return 0
}
