package translation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

type searchCall struct {
	query    string
	limit    int
	preferTM bool
}

// fakeSearcher answers searches from a function and records every call.
type fakeSearcher struct {
	mu     sync.Mutex
	calls  []searchCall
	answer func(query string, preferTM bool) []icd11.Result
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int, preferTM bool) []icd11.Result {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query, limit, preferTM})
	f.mu.Unlock()
	if f.answer == nil {
		return []icd11.Result{}
	}
	return f.answer(query, preferTM)
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func tmResult(code, display string) icd11.Result {
	return icd11.Result{Code: code, Display: display, IsTraditionalMedicine: true, System: icd11.SystemURI, Module: icd11.ModuleTraditional}
}

func generalResult(code, display string) icd11.Result {
	return icd11.Result{Code: code, Display: display, System: icd11.SystemURI, Module: icd11.ModuleGeneral}
}

func newTestResolver(s Searcher) *Resolver {
	return NewResolver(s, NewCache(), 0, zerolog.Nop())
}

// =========== Candidate Tests ===========

func TestCandidates(t *testing.T) {
	term := &namaste.Term{
		Code:              "NAM002",
		English:           "Fever",
		SanskritDiacritic: "jvaraḥ",
		Definition:        "Elevated body temperature",
		Sanskrit:          "jv",
		Category:          "Fever",
	}
	assert.Equal(t, []string{"Fever", "jvaraḥ", "Elevated body", "fever Fever"}, Candidates(term))
}

func TestCandidates_GeneralCategoryAndCap(t *testing.T) {
	term := &namaste.Term{
		English:           "Joint pain",
		SanskritDiacritic: "sandhiśūla",
		Definition:        "Pain felt inside joints",
		Sanskrit:          "sandhishula",
		Category:          namaste.CategoryGeneral,
	}
	assert.Equal(t, []string{"Joint pain", "sandhiśūla", "Pain felt", "sandhishula"}, Candidates(term))

	term.Category = "Joint Disorder"
	got := Candidates(term)
	require.Len(t, got, 5)
	assert.Equal(t, "joint disorder Joint pain", got[4])
}

// =========== Resolver Tests ===========

func TestTranslate_DictionaryFallbackWhenUnauthenticated(t *testing.T) {
	client := icd11.NewClient(icd11.Config{}, zerolog.Nop())
	r := NewResolver(client, NewCache(), 0, zerolog.Nop())

	res := r.Translate(context.Background(), &namaste.Term{Code: "NAM001", Sanskrit: "jvara", Display: "jvara"})
	require.NotNil(t, res)
	assert.Equal(t, SourceDictionary, res.Source)
	assert.Equal(t, "TM25.1", res.TargetCode)
	assert.Equal(t, "Fever", res.EnglishText)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)
	assert.Equal(t, 1, r.Cache().Size())
}

func TestTranslate_ExactRemoteMatchStopsEarly(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{tmResult("TM25.1", "Fever")}
	}}
	r := newTestResolver(s)
	term := &namaste.Term{Code: "NAM002", English: "Fever", Sanskrit: "jvara", Category: "Fever"}

	res := r.Translate(context.Background(), term)
	require.NotNil(t, res)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "TM25.1", res.TargetCode)
	assert.Equal(t, 0.98, res.Confidence)
	assert.Equal(t, 1, s.callCount())
	assert.Equal(t, searchCall{"Fever", 5, true}, s.calls[0])
}

func TestTranslate_Idempotent(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{tmResult("TM25.1", "Fever")}
	}}
	r := newTestResolver(s)
	term := &namaste.Term{Code: "NAM002", English: "Fever"}

	first := r.Translate(context.Background(), term)
	calls := s.callCount()
	second := r.Translate(context.Background(), term)

	assert.Same(t, first, second)
	assert.Equal(t, calls, s.callCount())
}

func TestTranslate_ClearForcesFreshResolution(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{tmResult("TM25.1", "Fever")}
	}}
	r := newTestResolver(s)
	term := &namaste.Term{Code: "NAM002", English: "Fever"}

	r.Translate(context.Background(), term)
	assert.Equal(t, 1, r.Cache().Clear())
	assert.Equal(t, 0, r.Cache().Size())

	before := s.callCount()
	r.Translate(context.Background(), term)
	assert.Greater(t, s.callCount(), before)
}

func TestTranslate_PrefersTMSubset(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{
			generalResult("MG26", "Cough"),
			tmResult("TM23.2", "Cough disorder (TM2)"),
		}
	}}
	r := newTestResolver(s)

	res := r.Translate(context.Background(), &namaste.Term{Code: "C1", English: "Cough"})
	require.NotNil(t, res)
	assert.Equal(t, "TM23.2", res.TargetCode)
	assert.Empty(t, res.Alternatives)
}

func TestTranslate_FallsBackToGeneralThenContextual(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		if q == "Respiratory Wheeze" {
			return []icd11.Result{generalResult("CA23", "Wheeze")}
		}
		return nil
	}}
	r := newTestResolver(s)

	res := r.Translate(context.Background(), &namaste.Term{Code: "W1", English: "Wheeze", Category: "Respiratory"})
	require.NotNil(t, res)
	assert.Equal(t, "CA23", res.TargetCode)
	require.GreaterOrEqual(t, s.callCount(), 3)
	assert.Equal(t, searchCall{"Wheeze", 5, true}, s.calls[0])
	assert.Equal(t, searchCall{"Wheeze", 3, false}, s.calls[1])
	assert.Equal(t, searchCall{"Respiratory Wheeze", 3, false}, s.calls[2])
}

func TestTranslate_Alternatives(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{
			tmResult("TM25.1", "Fever"),
			tmResult("TM25.2", "Intermittent fever"),
			tmResult("TM25.3", "Continuous fever"),
			tmResult("TM25.4", "Remittent fever"),
			tmResult("TM25.5", "Fever with chills"),
		}
	}}
	r := newTestResolver(s)

	res := r.Translate(context.Background(), &namaste.Term{Code: "F1", English: "Fever"})
	require.NotNil(t, res)
	require.Len(t, res.Alternatives, 3)
	assert.Equal(t, "TM25.2", res.Alternatives[0].Code)
	assert.Equal(t, "TM25.4", res.Alternatives[2].Code)
	for _, a := range res.Alternatives {
		assert.GreaterOrEqual(t, a.Confidence, MinConfidence)
		assert.LessOrEqual(t, a.Confidence, MaxConfidence)
	}
}

func TestTranslate_LowRemoteConfidenceUsesDictionary(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{generalResult("ZZ99", "Unrelated disorder")}
	}}
	r := newTestResolver(s)

	res := r.Translate(context.Background(), &namaste.Term{Code: "K1", Sanskrit: "kasa", Display: "kasa"})
	require.NotNil(t, res)
	assert.Equal(t, SourceDictionary, res.Source)
	assert.Equal(t, "TM23.2", res.TargetCode)
	assert.Equal(t, "Cough", res.EnglishText)
}

func TestTranslate_LowRemoteConfidenceKeptWithoutDictionaryHit(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		return []icd11.Result{generalResult("ZZ99", "Unrelated disorder")}
	}}
	r := newTestResolver(s)

	res := r.Translate(context.Background(), &namaste.Term{Code: "V1", Sanskrit: "vatarakta", Display: "vatarakta"})
	require.NotNil(t, res)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "ZZ99", res.TargetCode)
	assert.Less(t, res.Confidence, 0.6)
}

func TestTranslate_KeepsBestAcrossCandidates(t *testing.T) {
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		switch q {
		case "Swelling of joints":
			return []icd11.Result{generalResult("FA00", "Joint swelling")}
		case "amavata":
			return []icd11.Result{tmResult("TM26.0", "Amavata")}
		}
		return nil
	}}
	r := newTestResolver(s)
	term := &namaste.Term{Code: "A1", English: "Swelling of joints", Sanskrit: "amavata"}

	res := r.Translate(context.Background(), term)
	require.NotNil(t, res)
	assert.Equal(t, "TM26.0", res.TargetCode)
	assert.Equal(t, 0.98, res.Confidence)
}

func TestTranslate_NothingFoundIsNotCached(t *testing.T) {
	r := newTestResolver(&fakeSearcher{})

	res := r.Translate(context.Background(), &namaste.Term{Code: "N1", Sanskrit: "vatarakta"})
	assert.Nil(t, res)
	assert.Equal(t, 0, r.Cache().Size())
}

func TestTranslate_CancelledContextStopsCandidateLoop(t *testing.T) {
	s := &fakeSearcher{}
	r := NewResolver(s, NewCache(), time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Translate(ctx, &namaste.Term{Code: "J1", English: "Fever", Sanskrit: "jvara"})
	require.NotNil(t, res)
	assert.Equal(t, SourceDictionary, res.Source)
	for _, c := range s.calls {
		assert.Equal(t, "Fever", c.query)
	}
}

func TestTranslate_CancelledContextResultNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSearcher{answer: func(q string, preferTM bool) []icd11.Result {
		if q == "Headache" {
			cancel()
			return []icd11.Result{generalResult("8A80", "Migraine")}
		}
		if q == "shirashula" {
			return []icd11.Result{tmResult("TM27.0", "Shirashula")}
		}
		return []icd11.Result{}
	}}
	r := NewResolver(s, NewCache(), time.Millisecond, zerolog.Nop())
	term := &namaste.Term{Code: "H1", English: "Headache", Sanskrit: "shirashula"}

	first := r.Translate(ctx, term)
	require.NotNil(t, first)
	assert.Equal(t, "8A80", first.TargetCode)
	assert.Equal(t, 0, r.Cache().Size())

	second := r.Translate(context.Background(), term)
	require.NotNil(t, second)
	assert.Equal(t, "TM27.0", second.TargetCode)
	assert.Equal(t, 1, r.Cache().Size())
}

func TestTranslate_WaitsBetweenCandidates(t *testing.T) {
	s := &fakeSearcher{}
	r := NewResolver(s, NewCache(), 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	r.Translate(context.Background(), &namaste.Term{Code: "D1", English: "Dryness", Sanskrit: "rukshata"})
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTranslate_NilTerm(t *testing.T) {
	assert.Nil(t, newTestResolver(&fakeSearcher{}).Translate(context.Background(), nil))
}

func TestCache_PutReplacesEarlierEntry(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("N1")
	assert.False(t, ok)

	c.Put("N1", &Result{TargetCode: "TM26.0"})
	c.Put("N1", &Result{TargetCode: "TM27.0"})

	got, ok := c.Get("N1")
	require.True(t, ok)
	assert.Equal(t, "TM27.0", got.TargetCode)
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, 1, c.Clear())
	_, ok = c.Get("N1")
	assert.False(t, ok)
}
