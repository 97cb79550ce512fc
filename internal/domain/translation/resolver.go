// Package translation resolves NAMASTE terms to ICD-11 codes. It searches
// the WHO API with several phrasings of a term, scores what comes back and
// falls back to a curated dictionary when nothing scores well.
package translation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

// Result sources.
const (
	SourceRemote     = "WHO_ICD_11_v2"
	SourceDictionary = "SEMANTIC_MAPPING"
)

const icdSystemURI = icd11.SystemURI

// Resolution thresholds and search sizes.
const (
	earlyStopConfidence = 0.8
	fallbackConfidence  = 0.6
	maxCandidates       = 5
	minCandidateLength  = 3
	tmSearchLimit       = 5
	generalSearchLimit  = 3
	maxAlternatives     = 3
)

// Searcher is the remote code search the resolver depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, preferTM bool) []icd11.Result
}

// Alternative is a lower-ranked candidate returned alongside the best match.
type Alternative struct {
	Display    string  `json:"display"`
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Definition string  `json:"definition,omitempty"`
	Module     string  `json:"module,omitempty"`
}

// Result is the resolved ICD-11 translation of a term.
type Result struct {
	Source       string        `json:"source"`
	EnglishText  string        `json:"englishTranslation"`
	TargetCode   string        `json:"icd11Code"`
	Confidence   float64       `json:"confidence"`
	System       string        `json:"system,omitempty"`
	SystemName   string        `json:"systemName,omitempty"`
	Definition   string        `json:"definition,omitempty"`
	URL          string        `json:"url,omitempty"`
	Module       string        `json:"module,omitempty"`
	Alternatives []Alternative `json:"alternatives"`
}

// Resolver translates terms and caches the outcome by term code.
type Resolver struct {
	searcher Searcher
	cache    *Cache
	delay    time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a Resolver. delay is the pause between successive
// remote searches for one term.
func NewResolver(searcher Searcher, cache *Cache, delay time.Duration, logger zerolog.Logger) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{searcher: searcher, cache: cache, delay: delay, logger: logger}
}

// Cache exposes the resolver's cache for administrative resets.
func (r *Resolver) Cache() *Cache { return r.cache }

// Translate returns the best translation for t, or nil when neither the
// remote search nor the dictionary produced anything.
func (r *Resolver) Translate(ctx context.Context, t *namaste.Term) *Result {
	if t == nil {
		return nil
	}
	key := cacheKey(t)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	log := r.logger.With().Str("code", t.Code).Logger()
	var best *Result
	for i, q := range Candidates(t) {
		if i > 0 {
			if err := sleep(ctx, r.delay); err != nil {
				log.Debug().Err(err).Msg("translation interrupted")
				break
			}
		}
		res := r.translateQuery(ctx, q, t.Category)
		if res == nil {
			continue
		}
		if best == nil || res.Confidence > best.Confidence {
			best = res
			log.Debug().Str("query", q).Str("icd11", res.TargetCode).Float64("confidence", res.Confidence).Msg("candidate matched")
		}
		if res.Confidence > earlyStopConfidence {
			break
		}
	}

	if best == nil || best.Confidence < fallbackConfidence {
		if dict := dictionaryLookup(t); dict != nil {
			best = dict
		}
	}
	if best == nil {
		log.Info().Msg("no translation found")
		return nil
	}

	if ctx.Err() != nil {
		// Later candidates were never tried, so the result is not cached.
		log.Debug().Str("icd11", best.TargetCode).Msg("partial translation not cached")
		return best
	}
	r.cache.Put(key, best)
	log.Info().Str("icd11", best.TargetCode).Str("source", best.Source).Float64("confidence", best.Confidence).Msg("term translated")
	return best
}

// translateQuery searches TM2 first, then all of ICD-11, then the query
// prefixed with the term's category, and scores the top hit.
func (r *Resolver) translateQuery(ctx context.Context, q, category string) *Result {
	results := r.searcher.Search(ctx, q, tmSearchLimit, true)
	if tm := onlyTM(results); len(tm) > 0 {
		results = tm
	}
	if len(results) == 0 {
		results = r.searcher.Search(ctx, q, generalSearchLimit, false)
	}
	if len(results) == 0 && category != "" {
		results = r.searcher.Search(ctx, category+" "+q, generalSearchLimit, false)
	}
	if len(results) == 0 {
		return nil
	}

	top := results[0]
	res := &Result{
		Source:       SourceRemote,
		EnglishText:  top.Display,
		TargetCode:   top.Code,
		Confidence:   Score(q, top.Display, top.Relevance, top.IsTraditionalMedicine),
		System:       top.System,
		SystemName:   top.SystemName,
		Definition:   top.Definition,
		URL:          top.URL,
		Module:       top.Module,
		Alternatives: []Alternative{},
	}
	for _, alt := range results[1:min(len(results), 1+maxAlternatives)] {
		res.Alternatives = append(res.Alternatives, Alternative{
			Display:    alt.Display,
			Code:       alt.Code,
			Confidence: Score(q, alt.Display, alt.Relevance, alt.IsTraditionalMedicine),
			Definition: alt.Definition,
			Module:     alt.Module,
		})
	}
	return res
}

// Candidates lists the query strings tried for a term, most specific first.
func Candidates(t *namaste.Term) []string {
	var out []string
	add := func(s string) {
		if utf8.RuneCountInString(s) >= minCandidateLength {
			out = append(out, s)
		}
	}
	add(t.English)
	add(t.SanskritDiacritic)
	if kw := t.DefinitionKeywords(2); len(kw) > 0 {
		add(strings.Join(kw, " "))
	}
	add(t.Sanskrit)
	if t.Category != "" && t.Category != namaste.CategoryGeneral && t.English != "" {
		add(strings.ToLower(t.Category) + " " + t.English)
	}
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func onlyTM(results []icd11.Result) []icd11.Result {
	var tm []icd11.Result
	for _, r := range results {
		if r.IsTraditionalMedicine {
			tm = append(tm, r)
		}
	}
	return tm
}

func cacheKey(t *namaste.Term) string {
	if t.Code != "" {
		return t.Code
	}
	return t.Display
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
