// Package namaste holds the NAMASTE traditional-medicine codebook: loading
// rows into immutable terms, indexing them by code and fuzzy search.
package namaste

import "strings"

// System is the traditional medicine system a term belongs to.
type System string

const (
	SystemAyurveda    System = "Ayurveda"
	SystemSiddha      System = "Siddha"
	SystemUnani       System = "Unani"
	SystemYoga        System = "Yoga"
	SystemNaturopathy System = "Naturopathy"
	SystemHomeopathy  System = "Homeopathy"
)

// systems is ordered; the first substring hit wins.
var systems = []System{
	SystemAyurveda,
	SystemSiddha,
	SystemUnani,
	SystemYoga,
	SystemNaturopathy,
	SystemHomeopathy,
}

// ParseSystem resolves free text such as "Ayurveda - Kayachikitsa" to a
// System by case-insensitive substring match. Unrecognised text defaults to
// Ayurveda.
func ParseSystem(raw string) System {
	lower := strings.ToLower(raw)
	for _, s := range systems {
		if strings.Contains(lower, strings.ToLower(string(s))) {
			return s
		}
	}
	return SystemAyurveda
}

// Designation is an alternative name for a term in some language and script.
type Designation struct {
	Language string `json:"language"`
	Use      string `json:"use"`
	Value    string `json:"value"`
}

// Designation uses.
const (
	UseTransliteration = "transliteration"
	UseDiacritic       = "diacritic"
	UseDevanagari      = "devanagari"
	UseDisplay         = "display"
)

// Term is one NAMASTE codebook entry. Terms are immutable once loaded.
type Term struct {
	Code              string        `json:"code"`
	Sanskrit          string        `json:"sanskrit"`
	SanskritDiacritic string        `json:"sanskritDiacritic"`
	Devanagari        string        `json:"devanagari"`
	English           string        `json:"english"`
	Display           string        `json:"display"`
	Definition        string        `json:"definition"`
	System            System        `json:"system"`
	Category          string        `json:"category"`
	Designations      []Designation `json:"designation"`
	SearchTokens      []string      `json:"searchTerms"`
}

// Row is one raw source record keyed by column name.
type Row map[string]string

// CategoryGeneral is the fallback category.
const CategoryGeneral = "General"
