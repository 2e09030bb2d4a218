package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/search"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httputil"
	"github.com/reelhunter/recruiter/pkg/validator"
)

// CandidateHandler serves candidate search for recruiters.
type CandidateHandler struct {
	search *search.Service
	logger *slog.Logger
}

// NewCandidateHandler creates a new candidate HTTP handler.
func NewCandidateHandler(svc *search.Service, logger *slog.Logger) *CandidateHandler {
	return &CandidateHandler{search: svc, logger: logger}
}

// CandidateSearchQuery holds the query string of a search request. Field
// names follow the query parameters.
type CandidateSearchQuery struct {
	Query        string   `json:"q" validate:"max=200"`
	Availability string   `json:"availability" validate:"max=50"`
	Location     string   `json:"location" validate:"max=100"`
	Province     string   `json:"province" validate:"max=50"`
	BEELevel     string   `json:"bee_level" validate:"max=50"`
	Currency     string   `json:"currency" validate:"omitempty,len=3,alpha"`
	Skills       []string `json:"skills" validate:"max=20,dive,max=100"`
	Languages    []string `json:"languages" validate:"max=11,dive,max=30"`
}

// CandidateSearchResponse is the result list of a search.
type CandidateSearchResponse struct {
	Candidates []domain.CandidateSearchResult `json:"candidates"`
	Count      int                            `json:"count"`
	Limit      int                            `json:"limit"`
}

// Search handles GET /api/v1/candidates/search
func (h *CandidateHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := parseSearchFilters(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	results, err := h.search.Candidates(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, CandidateSearchResponse{
		Candidates: results,
		Count:      len(results),
		Limit:      domain.CandidateSearchLimit,
	})
}

// parseSearchFilters reads filters from the query string. List filters
// accept repeated parameters, comma-separated values, or both.
func parseSearchFilters(r *http.Request) (domain.SearchFilters, error) {
	q := r.URL.Query()

	query := CandidateSearchQuery{
		Query:        strings.TrimSpace(q.Get("q")),
		Availability: strings.TrimSpace(q.Get("availability")),
		Location:     strings.TrimSpace(q.Get("location")),
		Province:     strings.TrimSpace(q.Get("province")),
		BEELevel:     strings.TrimSpace(q.Get("bee_level")),
		Currency:     strings.TrimSpace(q.Get("currency")),
		Skills:       splitList(q["skills"]),
		Languages:    splitList(q["languages"]),
	}
	if err := validator.Validate(&query); err != nil {
		return domain.SearchFilters{}, err
	}

	f := domain.SearchFilters{
		Query:        query.Query,
		Availability: query.Availability,
		Location:     query.Location,
		Province:     query.Province,
		BEELevel:     query.BEELevel,
		Currency:     query.Currency,
		Skills:       query.Skills,
		Languages:    query.Languages,
	}

	if v := q.Get("reelpass_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.SearchFilters{}, apperrors.InvalidInput("reelpass_only must be true or false")
		}
		f.ReelPassOnly = b
	}

	var err error
	if f.SalaryMin, err = queryIntPtr(r, "salary_min"); err != nil {
		return domain.SearchFilters{}, err
	}
	if f.SalaryMax, err = queryIntPtr(r, "salary_max"); err != nil {
		return domain.SearchFilters{}, err
	}
	return f, nil
}

func queryIntPtr(r *http.Request, name string) (*int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.InvalidInput(name + " must be a whole number")
	}
	return &n, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
