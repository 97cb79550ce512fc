package icd11

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// langString decodes either a plain JSON string or a language-tagged
// object such as {"@language": "en", "@value": "Fever"}.
type langString string

func (s *langString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = langString(str)
		return nil
	}
	var tagged struct {
		Value string `json:"@value"`
	}
	if err := json.Unmarshal(b, &tagged); err == nil {
		*s = langString(tagged.Value)
		return nil
	}
	*s = ""
	return nil
}

// stringList decodes a single value or an array of values.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var many []langString
	if err := json.Unmarshal(b, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, v := range many {
			if v != "" {
				out = append(out, string(v))
			}
		}
		*l = out
		return nil
	}
	var one langString
	_ = json.Unmarshal(b, &one)
	if one != "" {
		*l = stringList{string(one)}
	} else {
		*l = nil
	}
	return nil
}

// flexFloat accepts a number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexFloat(v)
			return nil
		}
	}
	*f = 0
	return nil
}

type entity struct {
	TheCode       string     `json:"theCode"`
	Code          string     `json:"code"`
	Title         langString `json:"title"`
	Label         langString `json:"label"`
	Definition    langString `json:"definition"`
	Score         flexFloat  `json:"score"`
	MatchingScore flexFloat  `json:"matchingScore"`
	AtID          string     `json:"@id"`
	ID            string     `json:"id"`
	Synonym       stringList `json:"synonym"`
}

type searchResponse struct {
	DestinationEntities []entity        `json:"destinationEntities"`
	Entity              json.RawMessage `json:"entity"`
	Error               bool            `json:"error"`
	ErrorMessage        string          `json:"errorMessage"`
}

// parseEntities extracts the entity list from either response shape.
func parseEntities(body []byte) ([]entity, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if resp.DestinationEntities != nil {
		return resp.DestinationEntities, nil
	}
	raw := bytes.TrimSpace(resp.Entity)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []entity
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode entity list: %w", err)
		}
		return list, nil
	}
	var one entity
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return []entity{one}, nil
}

func (e entity) toResult() (Result, bool) {
	code := strings.TrimSpace(firstOf(e.TheCode, e.Code))
	display := strings.TrimSpace(firstOf(string(e.Title), string(e.Label)))
	if code == "" || display == "" {
		return Result{}, false
	}
	score := float64(e.Score)
	if score == 0 {
		score = float64(e.MatchingScore)
	}
	tm := strings.HasPrefix(code, "TM")
	r := Result{
		Code:                  code,
		Display:               display,
		Definition:            string(e.Definition),
		System:                SystemURI,
		URL:                   firstOf(e.AtID, e.ID),
		Relevance:             score,
		Synonyms:              []string(e.Synonym),
		IsTraditionalMedicine: tm,
		Source:                SourceWHO,
	}
	if tm {
		r.SystemName = "WHO ICD-11 TM2"
		r.Module = ModuleTraditional
	} else {
		r.SystemName = "WHO ICD-11"
		r.Module = ModuleGeneral
	}
	return r, true
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
