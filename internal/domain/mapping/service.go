package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/platform/auth"
)

var (
	ErrValidation   = errors.New("invalid mapping")
	ErrTermNotFound = errors.New("NAMASTE term not found")
)

// TermLookup resolves NAMASTE codes; *namaste.Store satisfies it.
type TermLookup interface {
	GetByCode(code string) (*namaste.Term, bool)
}

type Service struct {
	repo   Repository
	terms  TermLookup
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, terms TermLookup, logger zerolog.Logger) *Service {
	return &Service{repo: repo, terms: terms, logger: logger, now: time.Now}
}

type CreateInput struct {
	NamasteCode  string   `json:"namasteCode"`
	ICD11Code    string   `json:"icd11Code"`
	ICD11Display string   `json:"icd11Display"`
	DoctorID     string   `json:"doctorId"`
	Confidence   *float64 `json:"confidence"`
	Notes        string   `json:"notes"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Mapping, error) {
	namasteCode := strings.TrimSpace(in.NamasteCode)
	icdCode := strings.TrimSpace(in.ICD11Code)
	if namasteCode == "" || icdCode == "" {
		return nil, fmt.Errorf("%w: both namasteCode and icd11Code are required", ErrValidation)
	}

	confidence := float64(DefaultConfidence)
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	if confidence < 0 || confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be between 0 and 100", ErrValidation)
	}

	term, ok := s.terms.GetByCode(namasteCode)
	if !ok {
		return nil, ErrTermNotFound
	}

	createdBy := strings.TrimSpace(in.DoctorID)
	if createdBy == "" {
		createdBy = DefaultCreator
	}
	icdDisplay := in.ICD11Display
	if icdDisplay == "" {
		icdDisplay = icdCode
	}

	m := &Mapping{
		ID:             newID(),
		NamasteCode:    term.Code,
		NamasteDisplay: term.Display,
		ICD11Code:      icdCode,
		ICD11Display:   icdDisplay,
		Confidence:     confidence,
		Status:         StatusPendingReview,
		CreatedBy:      createdBy,
		CreatedAt:      s.now().UTC(),
		Notes:          in.Notes,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create mapping: %w", err)
	}

	s.logger.Info().
		Str("mapping_id", m.ID).
		Str("namaste_code", m.NamasteCode).
		Str("icd11_code", m.ICD11Code).
		Str("created_by", m.CreatedBy).
		Msg("manual mapping created")
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Mapping, error) {
	return s.repo.Get(ctx, id)
}

// List returns mappings newest first. A non-positive limit returns all.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Mapping, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*Mapping{}
	}
	return items, total, nil
}

// Review approves or rejects a pending mapping. An empty reviewer falls back
// to the authenticated user and then to DefaultReviewer.
func (s *Service) Review(ctx context.Context, id string, r Review) (*Mapping, error) {
	r.Reviewer = strings.TrimSpace(r.Reviewer)
	if r.Reviewer == "" {
		if uid := auth.UserIDFromContext(ctx); uid != "" && uid != auth.DevUserID {
			r.Reviewer = uid
		} else {
			r.Reviewer = DefaultReviewer
		}
	}

	at := s.now().UTC()
	m, err := s.repo.Update(ctx, id, func(m *Mapping) error {
		return m.apply(r, at)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("mapping_id", m.ID).
		Str("status", string(m.Status)).
		Str("reviewer", r.Reviewer).
		Msg("manual mapping reviewed")
	return m, nil
}
