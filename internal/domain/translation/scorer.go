package translation

import (
	"strings"

	"github.com/ayuniq/ayuniq/internal/platform/similarity"
)

const (
	MinConfidence = 0.1
	MaxConfidence = 0.98

	relevanceWeight  = 0.4
	similarityWeight = 0.6
	tmBoost          = 1.15
	keywordBoost     = 1.1
)

var medicalKeywords = []string{
	"fever", "arthritis", "cough", "pain", "disorder", "disease", "syndrome",
	"inflammation", "infection", "respiratory", "digestive", "cardiovascular",
}

// Score rates how well candidate (a remote display name) answers query.
// relevance is the remote search score. The result is always within
// [MinConfidence, MaxConfidence]; the clamp is applied once, after all
// boosts, so an exact match always reaches the ceiling.
func Score(query, candidate string, relevance float64, isTM bool) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return MinConfidence
	}

	var conf float64
	if q == c {
		conf = MaxConfidence
	} else {
		rel := similarity.Clamp(relevance/100, 0, 1)
		conf = relevanceWeight*rel + similarityWeight*similarity.Score(q, c, similarity.ConfidenceContainmentScore)
	}

	if isTM {
		conf *= tmBoost
	}
	if sharesMedicalKeyword(q, c) {
		conf *= keywordBoost
	}
	return similarity.Clamp(conf, MinConfidence, MaxConfidence)
}

func sharesMedicalKeyword(a, b string) bool {
	for _, kw := range medicalKeywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			return true
		}
	}
	return false
}
