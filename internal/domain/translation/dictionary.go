package translation

import (
	"strings"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
)

type dictEntry struct {
	key        string
	code       string
	english    string
	confidence float64
}

// semanticDictionary is a small curated list of Sanskrit and English
// keywords with known TM2 codes. Entries are tried in order.
var semanticDictionary = []dictEntry{
	{"fever", "TM25.1", "Fever", 0.9},
	{"jvara", "TM25.1", "Fever", 0.95},
	{"jwara", "TM25.1", "Fever", 0.95},
	{"arthritis", "TM26.0", "Arthritis", 0.85},
	{"amavata", "TM26.0", "Rheumatoid Arthritis", 0.95},
	{"sandhi", "TM26.1", "Joint disorder", 0.8},
	{"cough", "TM23.2", "Cough", 0.9},
	{"kasa", "TM23.2", "Cough", 0.95},
	{"kasha", "TM23.2", "Cough", 0.95},
	{"svasa", "TM23.1", "Dyspnea", 0.9},
	{"shvasa", "TM23.1", "Dyspnea", 0.9},
	{"arsa", "TM21.4", "Hemorrhoids", 0.92},
	{"arsha", "TM21.4", "Hemorrhoids", 0.92},
	{"grahani", "TM21.2", "Digestive disorder", 0.85},
	{"atisara", "TM21.1", "Diarrhea", 0.9},
	{"kushta", "TM22.1", "Skin disease", 0.85},
	{"kshudra", "TM22.2", "Minor skin disorder", 0.8},
}

// dictionaryLookup matches dictionary keys as substrings of the term's
// names.
func dictionaryLookup(t *namaste.Term) *Result {
	text := strings.ToLower(strings.Join(nonEmpty(t.Sanskrit, t.SanskritDiacritic, t.English, t.Display), " "))
	if text == "" {
		return nil
	}
	for _, e := range semanticDictionary {
		if strings.Contains(text, e.key) {
			return &Result{
				Source:       SourceDictionary,
				EnglishText:  e.english,
				TargetCode:   e.code,
				Confidence:   e.confidence,
				System:       icdSystemURI,
				SystemName:   "WHO ICD-11 TM2",
				Alternatives: []Alternative{},
			}
		}
	}
	return nil
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
