// Package admin holds the operator endpoints: cache reset, codebook reload
// and upload, and the WHO connectivity probe.
package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

var (
	ErrUploadTooLarge = errors.New("upload exceeds the size limit")
	ErrEmptyCSV       = errors.New("CSV contains no rows")
	ErrInvalidCSV     = errors.New("invalid CSV")
)

type CacheClearer interface {
	Clear() int
}

type DataLoader interface {
	Reload(ctx context.Context) (int, error)
	Replace(ctx context.Context, src io.Reader) (int, error)
	Store() *namaste.Store
}

type ConnectionTester interface {
	TestConnection(ctx context.Context) icd11.ConnectionStatus
}

type Service struct {
	cache     CacheClearer
	loader    DataLoader
	who       ConnectionTester
	maxUpload int64
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(cache CacheClearer, loader DataLoader, who ConnectionTester, maxUpload int64, logger zerolog.Logger) *Service {
	return &Service{
		cache:     cache,
		loader:    loader,
		who:       who,
		maxUpload: maxUpload,
		logger:    logger,
		now:       time.Now,
	}
}

// ClearCache drops every cached translation and returns how many were held.
func (s *Service) ClearCache() int {
	n := s.cache.Clear()
	s.logger.Info().Int("removed", n).Msg("translation cache cleared")
	return n
}

type DataStatus struct {
	TotalTerms int  `json:"totalTerms"`
	IsLoaded   bool `json:"isLoaded"`
}

// ReloadData re-reads the codebook from disk. Cached translations may refer
// to replaced terms, so the cache is cleared on success.
func (s *Service) ReloadData(ctx context.Context) (*DataStatus, error) {
	if _, err := s.loader.Reload(ctx); err != nil {
		return nil, fmt.Errorf("reload NAMASTE data: %w", err)
	}
	s.cache.Clear()
	return s.status(), nil
}

func (s *Service) status() *DataStatus {
	st := s.loader.Store()
	return &DataStatus{TotalTerms: st.Len(), IsLoaded: st.IsLoaded()}
}

// TestConnection probes the WHO API and reports whether it answered.
func (s *Service) TestConnection(ctx context.Context) (icd11.ConnectionStatus, bool) {
	st := s.who.TestConnection(ctx)
	ok := st.Status == "connected"
	s.logger.Info().Bool("connected", ok).Str("error", st.Error).Msg("WHO connection test")
	return st, ok
}

// ImportCSV validates an uploaded codebook and swaps it in. The upload is
// parsed before the file on disk is touched, so a bad upload leaves the
// current data in place.
func (s *Service) ImportCSV(ctx context.Context, src io.Reader) (int, error) {
	limit := s.maxUpload
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return 0, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return 0, ErrUploadTooLarge
	}

	rows, err := namaste.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(rows) == 0 {
		return 0, ErrEmptyCSV
	}

	n, err := s.loader.Replace(ctx, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("replace NAMASTE data: %w", err)
	}
	s.cache.Clear()
	s.logger.Info().Int("bytes", len(data)).Int("terms", n).Msg("NAMASTE csv imported")
	return n, nil
}

func (s *Service) MaxUpload() int64 { return s.maxUpload }
