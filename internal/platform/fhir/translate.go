package fhir

import "fmt"

// ConceptMap equivalence codes.
const (
	EquivalenceEquivalent = "equivalent"
	EquivalenceRelatedTo  = "relatedto"
	EquivalenceInexact    = "inexact"
)

// TranslateResponse is the outcome of ConceptMap/$translate.
type TranslateResponse struct {
	Result  bool
	Message string
	Matches []TranslateMatch
}

type TranslateMatch struct {
	Equivalence string
	Concept     Coding
	Confidence  float64
	Source      string
}

// NoTranslation is the result=false response for an untranslatable code.
func NoTranslation(code string) *TranslateResponse {
	return &TranslateResponse{Message: fmt.Sprintf("No translation found for code '%s'", code)}
}

func (r *TranslateResponse) Parameters() *Parameters {
	out := NewParameters(BoolParam("result", r.Result))
	if r.Message != "" {
		out.Add(StringParam("message", r.Message))
	}
	for _, m := range r.Matches {
		parts := []Parameter{
			CodeParam("equivalence", m.Equivalence),
			CodingParam("concept", m.Concept),
			DecimalParam("confidence", m.Confidence),
		}
		if m.Source != "" {
			parts = append(parts, StringParam("source", m.Source))
		}
		out.Add(PartParam("match", parts...))
	}
	return out
}
