// Package search finds candidates in the live candidate pool.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/repository"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

// Service validates search filters and runs them against the repository.
type Service struct {
	candidates repository.CandidateRepository
	logger     *slog.Logger
}

// NewService creates a search Service.
func NewService(candidates repository.CandidateRepository, logger *slog.Logger) *Service {
	return &Service{candidates: candidates, logger: logger}
}

// Candidates returns the candidates matching f, best ReelPass score first.
// Invalid filters are rejected before the store is queried.
func (s *Service) Candidates(ctx context.Context, f domain.SearchFilters) ([]domain.CandidateSearchResult, error) {
	if err := checkFilters(f); err != nil {
		return nil, err
	}

	results, err := s.candidates.Search(ctx, f)
	if err != nil {
		return nil, backend.Classify("search candidates", err)
	}

	s.logger.DebugContext(ctx, "candidate search",
		slog.Int("results", len(results)),
		slog.Bool("reelpass_only", f.ReelPassOnly),
	)
	return results, nil
}

func checkFilters(f domain.SearchFilters) error {
	if f.SalaryMin != nil && *f.SalaryMin < 0 {
		return apperrors.InvalidInput("salary_min must not be negative")
	}
	if f.SalaryMax != nil && *f.SalaryMax < 0 {
		return apperrors.InvalidInput("salary_max must not be negative")
	}
	if f.SalaryMin != nil && f.SalaryMax != nil && *f.SalaryMin > *f.SalaryMax {
		return apperrors.InvalidInput("salary_min must not exceed salary_max")
	}
	if f.Province != "" && !known(domain.Provinces, f.Province) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown province %q", f.Province))
	}
	if f.BEELevel != "" && !known(domain.BEELevels, f.BEELevel) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown bee level %q", f.BEELevel))
	}
	return nil
}

// known reports whether value names one of options, ignoring case and
// spacing style.
func known(options []string, value string) bool {
	key := domain.NormalizeEnum(value)
	if key == "" {
		return true
	}
	for _, o := range options {
		if domain.NormalizeEnum(o) == key {
			return true
		}
	}
	return false
}
