package namaste

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Store is the in-memory NAMASTE term index. Loads build a new snapshot and
// swap it in atomically, so readers never observe a partially loaded index.
type Store struct {
	snap   atomic.Pointer[snapshot]
	logger zerolog.Logger
}

type snapshot struct {
	terms    []*Term
	byCode   map[string]*Term
	loadedAt time.Time
}

// Stats summarises the loaded codebook.
type Stats struct {
	TotalTerms        int            `json:"totalTerms"`
	SystemBreakdown   map[System]int `json:"systemBreakdown"`
	CategoryBreakdown map[string]int `json:"categoryBreakdown"`
	IsLoaded          bool           `json:"isLoaded"`
	SampleTerm        *Term          `json:"sampleTerm"`
	LoadedAt          *time.Time     `json:"loadedAt,omitempty"`
}

// NewStore creates an empty, unloaded store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{logger: logger}
}

// Load builds a store from rows without logging.
func Load(rows []Row) *Store {
	s := NewStore(zerolog.Nop())
	s.Load(rows)
	return s
}

// Load replaces the index with terms built from rows and returns the number
// of terms kept. Rows without any name are skipped; a row that cannot be
// processed is logged and dropped.
func (s *Store) Load(rows []Row) int {
	next := &snapshot{
		terms:    make([]*Term, 0, len(rows)),
		byCode:   make(map[string]*Term, len(rows)),
		loadedAt: time.Now().UTC(),
	}

	skipped, failed := 0, 0
	for i, row := range rows {
		t, err := buildTerm(row, i+1)
		if err != nil {
			failed++
			s.logger.Warn().Err(err).Int("row", i+1).Msg("dropping NAMASTE row")
			continue
		}
		if t == nil {
			skipped++
			continue
		}
		next.terms = append(next.terms, t)
		if _, dup := next.byCode[t.Code]; !dup {
			next.byCode[t.Code] = t
		}
	}

	s.snap.Store(next)
	s.logger.Info().
		Int("rows", len(rows)).
		Int("terms", len(next.terms)).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("NAMASTE codebook loaded")
	return len(next.terms)
}

// buildTerm turns one row into a Term. It returns nil, nil for rows with no
// name at all.
func buildTerm(row Row, rowNumber int) (t *Term, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("malformed row: %v", r)
		}
	}()

	sanskrit := normalize(row.get(fieldSanskrit))
	diacritic := normalize(row.get(fieldDiacritic))
	devanagari := normalize(row.get(fieldDevanagari))
	english := normalize(row.get(fieldEnglish))
	if sanskrit == "" && diacritic == "" && devanagari == "" && english == "" {
		return nil, nil
	}

	code := row.get(fieldCode)
	if code == "" {
		code = fmt.Sprintf("NAM%04d", rowNumber)
	}
	definition := row.get(fieldDefinition)

	category := row.get(fieldCategory)
	if category == "" {
		category = deriveCategory(definition, sanskrit)
	}

	t = &Term{
		Code:              code,
		Sanskrit:          sanskrit,
		SanskritDiacritic: diacritic,
		Devanagari:        devanagari,
		English:           english,
		Display:           firstNonEmpty(english, diacritic, sanskrit, devanagari, code),
		Definition:        definition,
		System:            ParseSystem(row.get(fieldSystem)),
		Category:          cleanCategory(category, definition),
	}
	t.Designations = designations(t)
	t.SearchTokens = buildSearchTokens(
		[]string{sanskrit, diacritic, devanagari, english, code},
		definition,
	)
	return t, nil
}

func designations(t *Term) []Designation {
	var out []Designation
	if t.Sanskrit != "" {
		out = append(out, Designation{Language: "sa", Use: UseTransliteration, Value: t.Sanskrit})
	}
	if t.SanskritDiacritic != "" {
		out = append(out, Designation{Language: "sa", Use: UseDiacritic, Value: t.SanskritDiacritic})
	}
	if t.Devanagari != "" {
		out = append(out, Designation{Language: "sa", Use: UseDevanagari, Value: t.Devanagari})
	}
	if t.English != "" {
		out = append(out, Designation{Language: "en", Use: UseDisplay, Value: t.Display})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetByCode returns the term with exactly this code.
func (s *Store) GetByCode(code string) (*Term, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, false
	}
	t, ok := snap.byCode[code]
	return t, ok
}

// Snapshot returns the current terms in load order. Callers must not modify
// the slice.
func (s *Store) Snapshot() []*Term {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.terms
}

// IsLoaded reports whether at least one load has completed.
func (s *Store) IsLoaded() bool {
	return s.snap.Load() != nil
}

// Len returns the number of loaded terms.
func (s *Store) Len() int {
	return len(s.Snapshot())
}

// Stats computes breakdowns over the current snapshot.
func (s *Store) Stats() Stats {
	st := Stats{
		SystemBreakdown:   make(map[System]int),
		CategoryBreakdown: make(map[string]int),
	}
	snap := s.snap.Load()
	if snap == nil {
		return st
	}
	st.IsLoaded = true
	st.TotalTerms = len(snap.terms)
	loadedAt := snap.loadedAt
	st.LoadedAt = &loadedAt
	for _, t := range snap.terms {
		st.SystemBreakdown[t.System]++
		st.CategoryBreakdown[t.Category]++
	}
	if len(snap.terms) > 0 {
		st.SampleTerm = snap.terms[0]
	}
	return st
}
