package terminology

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/domain/translation"
	"github.com/ayuniq/ayuniq/internal/platform/db"
	"github.com/ayuniq/ayuniq/internal/platform/fhir"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

var (
	ErrCodeRequired = errors.New("code is required")
	ErrCodeNotFound = errors.New("code not found")
)

// ICDClient is the slice of the ICD-11 client the service uses.
type ICDClient interface {
	Search(ctx context.Context, query string, limit int, preferTM bool) []icd11.Result
	IsHealthy(ctx context.Context) bool
}

// HealthChecker reports mapping database health when Postgres is in use.
type HealthChecker interface {
	Check(ctx context.Context) *db.PoolStats
}

type Service struct {
	terms    *namaste.Store
	icd      ICDClient
	resolver *translation.Resolver
	caps     *fhir.CapabilityBuilder
	dbHealth HealthChecker
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(terms *namaste.Store, icd ICDClient, resolver *translation.Resolver, logger zerolog.Logger) *Service {
	caps := fhir.NewCapabilityBuilder(fhir.CapabilityConfig{
		ID:            "ayuniq-capability",
		ServerName:    "AyuniqCapability",
		ServerVersion: AppVersion,
		Publisher:     "Ayuniq Team",
		Description:   "FHIR R4 server for NAMASTE and ICD-11 terminology services",
		BaseURL:       "https://ayuniq.in/fhir/CapabilityStatement/ayuniq",
	})
	caps.AddResource("CodeSystem", []string{"read", "search-type"},
		fhir.OperationCapability{Name: "lookup", Definition: "http://hl7.org/fhir/OperationDefinition/CodeSystem-lookup"})
	caps.AddResource("ConceptMap", []string{},
		fhir.OperationCapability{Name: "translate", Definition: "http://hl7.org/fhir/OperationDefinition/ConceptMap-translate"})
	caps.AddResource("ValueSet", []string{},
		fhir.OperationCapability{Name: "expand", Definition: "http://hl7.org/fhir/OperationDefinition/ValueSet-expand"})

	return &Service{
		terms:    terms,
		icd:      icd,
		resolver: resolver,
		caps:     caps,
		logger:   logger,
		now:      time.Now,
	}
}

// SetHealthChecker adds database status to the health reports.
func (s *Service) SetHealthChecker(hc HealthChecker) { s.dbHealth = hc }

func (s *Service) Store() *namaste.Store { return s.terms }

func (s *Service) Resolver() *translation.Resolver { return s.resolver }

// Search runs the NAMASTE fuzzy search and the ICD-11 search side by side.
// Sixty percent of limit goes to NAMASTE and forty to ICD-11. A query
// shorter than two characters returns two empty lists.
func (s *Service) Search(ctx context.Context, query string, limit int) *DualSearch {
	out := &DualSearch{
		Namaste:   NamasteResults{Results: []NamasteHit{}},
		ICD11:     ICDResults{Results: []ICDHit{}},
		Query:     query,
		Timestamp: s.now().UTC(),
	}
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minQueryLength {
		return out
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	out.Namaste.Source = namasteListSource
	if n := limit * 6 / 10; n > 0 {
		for _, r := range s.terms.Search(q, n) {
			out.Namaste.Results = append(out.Namaste.Results, namasteHit(r))
		}
	}
	out.Namaste.Total = len(out.Namaste.Results)

	out.ICD11.Source = icdListSource
	if n := limit * 4 / 10; n > 0 && s.icd != nil {
		for _, r := range s.icd.Search(ctx, q, n, false) {
			out.ICD11.Results = append(out.ICD11.Results, icdHit(r))
		}
		sort.SliceStable(out.ICD11.Results, func(i, j int) bool {
			a, b := out.ICD11.Results[i], out.ICD11.Results[j]
			if a.IsTM2 != b.IsTM2 {
				return a.IsTM2
			}
			return a.Confidence > b.Confidence
		})
	}
	out.ICD11.Total = len(out.ICD11.Results)

	s.logger.Debug().
		Str("query", q).
		Int("namaste", out.Namaste.Total).
		Int("icd11", out.ICD11.Total).
		Msg("dual search")
	return out
}

func namasteHit(r namaste.SearchResult) NamasteHit {
	t := r.Term
	return NamasteHit{
		ID:                t.Code,
		Code:              t.Code,
		Sanskrit:          t.Sanskrit,
		SanskritDiacritic: t.SanskritDiacritic,
		Devanagari:        t.Devanagari,
		English:           t.English,
		Display:           t.Display,
		Definition:        t.Definition,
		System:            t.System,
		Category:          t.Category,
		Confidence:        int(math.Round(r.Score * 100)),
		Source:            SourceNamaste,
	}
}

func icdHit(r icd11.Result) ICDHit {
	tm := strings.HasPrefix(r.Code, "TM")
	kind := "Biomedicine"
	if tm {
		kind = icd11.ModuleTraditional
	}
	module := r.Module
	if module == "" {
		module = kind
	}
	systemName := r.SystemName
	if systemName == "" {
		systemName = "WHO ICD-11"
	}
	return ICDHit{
		ID:         r.Code,
		Code:       r.Code,
		Display:    r.Display,
		Definition: r.Definition,
		System:     r.System,
		SystemName: systemName,
		Module:     module,
		Type:       kind,
		URL:        r.URL,
		Confidence: int(math.Round(r.Relevance)),
		Source:     SourceICD11,
		IsTM2:      tm,
	}
}

// Lookup resolves a NAMASTE code to its display, definition and
// designations.
func (s *Service) Lookup(code string) (*fhir.LookupResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	t, ok := s.terms.GetByCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: Code '%s' not found", ErrCodeNotFound, code)
	}

	res := &fhir.LookupResult{
		Name:       NamasteName,
		Version:    AppVersion,
		Display:    t.Display,
		System:     NamasteSystemURI,
		Definition: t.Definition,
		Property: []fhir.LookupProperty{
			{Code: "system", Value: string(t.System)},
			{Code: "category", Value: t.Category},
		},
	}
	for _, d := range t.Designations {
		res.Designation = append(res.Designation, fhir.LookupDesignation{Language: d.Language, Value: d.Value})
	}
	return res, nil
}

// Translate maps a NAMASTE code to ICD-11. targetSystem overrides the
// system of the returned codings. Unknown or untranslatable codes yield
// result=false rather than an error.
func (s *Service) Translate(ctx context.Context, code, targetSystem string) *fhir.TranslateResponse {
	code = strings.TrimSpace(code)
	t, ok := s.terms.GetByCode(code)
	if !ok {
		return fhir.NoTranslation(code)
	}
	res := s.resolver.Translate(ctx, t)
	if res == nil {
		return fhir.NoTranslation(code)
	}

	system := targetSystem
	if system == "" {
		system = icd11.SystemURI
	}
	out := &fhir.TranslateResponse{Result: true}
	out.Matches = append(out.Matches, fhir.TranslateMatch{
		Equivalence: fhir.EquivalenceEquivalent,
		Concept:     fhir.Coding{System: system, Code: res.TargetCode, Display: res.EnglishText},
		Confidence:  res.Confidence,
		Source:      res.Source,
	})
	for _, alt := range res.Alternatives {
		out.Matches = append(out.Matches, fhir.TranslateMatch{
			Equivalence: fhir.EquivalenceRelatedTo,
			Concept:     fhir.Coding{System: system, Code: alt.Code, Display: alt.Display},
			Confidence:  alt.Confidence,
			Source:      res.Source,
		})
	}
	return out
}

// Expand returns NAMASTE concepts matching filter, or the whole code system
// in load order when filter is empty.
func (s *Service) Expand(filter string, count, offset int) *fhir.ValueSet {
	filter = strings.TrimSpace(filter)
	var terms []*namaste.Term
	if filter == "" {
		terms = s.terms.Snapshot()
	} else {
		for _, r := range s.terms.Search(filter, s.terms.Len()) {
			terms = append(terms, r.Term)
		}
	}

	total := len(terms)
	start := min(max(offset, 0), total)
	end := total
	if count > 0 {
		end = min(start+count, total)
	}

	contains := make([]fhir.ValueSetContains, 0, end-start)
	for _, t := range terms[start:end] {
		contains = append(contains, fhir.ValueSetContains{
			System:      NamasteSystemURI,
			Code:        t.Code,
			Display:     t.Display,
			Designation: designations(t),
		})
	}

	exp := &fhir.ValueSetExpansion{
		Identifier: "urn:uuid:" + uuid.NewString(),
		Timestamp:  s.now().UTC(),
		Total:      total,
		Offset:     start,
		Contains:   contains,
	}
	if filter != "" {
		exp.Parameter = append(exp.Parameter, fhir.StringParam("filter", filter))
	}
	return &fhir.ValueSet{
		ResourceType: "ValueSet",
		URL:          NamasteSystemURI + "/vs",
		Name:         NamasteName,
		Status:       "active",
		Expansion:    exp,
	}
}

// CodeSystem summarises NAMASTE with the sample term as its only concept.
func (s *Service) CodeSystem() *CodeSystem {
	st := s.terms.Stats()
	cs := &CodeSystem{
		ResourceType: "CodeSystem",
		ID:           CodeSystemID,
		URL:          NamasteSystemURI,
		Name:         NamasteName,
		Title:        NamasteTitle,
		Status:       "active",
		Content:      "complete",
		Count:        st.TotalTerms,
		Concept:      []CodeSystemConcept{},
	}
	if t := st.SampleTerm; t != nil {
		cs.Concept = append(cs.Concept, CodeSystemConcept{
			Code:        t.Code,
			Display:     t.Display,
			Definition:  t.Definition,
			Designation: designations(t),
		})
	}
	return cs
}

func (s *Service) Capabilities() *fhir.CapabilityStatement {
	return s.caps.Build()
}

// Health reports data, cache and upstream status for /api/health.
func (s *Service) Health(ctx context.Context) *Health {
	st := s.terms.Stats()
	h := &Health{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Version:   AppVersion,
		AppName:   AppName,
		Services: HealthServices{
			DataLoader: loaderStatus(st.IsLoaded),
			WhoIcdAPI:  s.whoStatus(ctx),
			Server:     "running",
		},
		Data: &HealthData{
			TotalTerms:         st.TotalTerms,
			CachedTranslations: s.resolver.Cache().Size(),
			SystemBreakdown:    st.SystemBreakdown,
		},
	}
	s.addDatabase(ctx, h)
	return h
}

// FHIRHealth is the reduced report served under /api/fhir/health.
func (s *Service) FHIRHealth(ctx context.Context) *Health {
	h := &Health{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Version:   AppVersion,
		Services: HealthServices{
			DataLoader: loaderStatus(s.terms.IsLoaded()),
			WhoAPI:     s.whoStatus(ctx),
			Server:     "running",
		},
	}
	s.addDatabase(ctx, h)
	return h
}

func (s *Service) addDatabase(ctx context.Context, h *Health) {
	if s.dbHealth == nil {
		return
	}
	stats := s.dbHealth.Check(ctx)
	h.Services.Database = stats
	if stats != nil && !stats.Healthy {
		h.Status = "degraded"
	}
}

func (s *Service) whoStatus(ctx context.Context) string {
	if s.icd != nil && s.icd.IsHealthy(ctx) {
		return "connected"
	}
	return "disconnected"
}

func loaderStatus(loaded bool) string {
	if loaded {
		return "loaded"
	}
	return "loading"
}
