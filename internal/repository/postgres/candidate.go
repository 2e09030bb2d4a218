package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/pkg/database"
)

const candidateColumns = `candidate_id, first_name, last_name, email, COALESCE(headline, ''),
	COALESCE(province, ''), COALESCE(bee_status, ''), languages,
	availability_status, available_from, notice_period_days,
	salary_expectation_min, salary_expectation_max, COALESCE(preferred_work_type, ''),
	location_preferences, verification_status, reelpass_score, availability_updated_at`

// CandidateRepository implements repository.CandidateRepository using
// PostgreSQL.
type CandidateRepository struct {
	db database.DBTX
}

// NewCandidateRepository creates a new PostgreSQL-backed candidate repository.
func NewCandidateRepository(db database.DBTX) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Search returns the candidates matching f, best ReelPass score first.
func (r *CandidateRepository) Search(ctx context.Context, f domain.SearchFilters) (results []domain.CandidateSearchResult, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if q := strings.TrimSpace(f.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR headline ILIKE $%d OR email ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex))
		args = append(args, containsPattern(q))
		argIndex++
	}
	if f.ReelPassOnly {
		conditions = append(conditions, fmt.Sprintf("reelpass_score >= $%d", argIndex))
		args = append(args, domain.ReelPassThreshold)
		argIndex++
	}
	if statuses := f.AvailabilityStatuses(); len(statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("availability_status = ANY($%d)", argIndex))
		args = append(args, statuses)
		argIndex++
	}
	// A candidate's range overlaps the requested one.
	if f.SalaryMin != nil {
		conditions = append(conditions, fmt.Sprintf("salary_expectation_max >= $%d", argIndex))
		args = append(args, *f.SalaryMin)
		argIndex++
	}
	if f.SalaryMax != nil {
		conditions = append(conditions, fmt.Sprintf("salary_expectation_min <= $%d", argIndex))
		args = append(args, *f.SalaryMax)
		argIndex++
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		conditions = append(conditions, fmt.Sprintf("location_preferences @> ARRAY[$%d]::text[]", argIndex))
		args = append(args, loc)
		argIndex++
	}
	if province := domain.NormalizeEnum(f.Province); province != "" {
		conditions = append(conditions, fmt.Sprintf("province_key = $%d", argIndex))
		args = append(args, province)
		argIndex++
	}
	if bee := domain.NormalizeEnum(f.BEELevel); bee != "" {
		conditions = append(conditions, fmt.Sprintf("bee_status_key = $%d", argIndex))
		args = append(args, bee)
		argIndex++
	}
	if patterns := skillPatterns(f.Skills); len(patterns) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM skills s WHERE s.profile_id = candidate_id AND s.name ILIKE ANY($%d))", argIndex))
		args = append(args, patterns)
		argIndex++
	}
	if langs := f.CanonicalLanguages(); len(langs) > 0 {
		conditions = append(conditions, fmt.Sprintf("languages && $%d::text[]", argIndex))
		args = append(args, langs)
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s
		FROM live_candidate_availability
		%s
		ORDER BY reelpass_score DESC, candidate_id
		LIMIT $%d`, candidateColumns, where, argIndex)
	args = append(args, domain.CandidateSearchLimit)

	ctx, end := database.TraceQuery(ctx, "SearchCandidates", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	currency := f.ResultCurrency()
	results = []domain.CandidateSearchResult{}
	for rows.Next() {
		var c domain.CandidateSearchResult
		if err := rows.Scan(
			&c.ID,
			&c.FirstName,
			&c.LastName,
			&c.Email,
			&c.Headline,
			&c.Province,
			&c.BEEStatus,
			&c.Languages,
			&c.AvailabilityStatus,
			&c.AvailableFrom,
			&c.NoticePeriodDays,
			&c.SalaryExpectationMin,
			&c.SalaryExpectationMax,
			&c.PreferredWorkType,
			&c.LocationPreferences,
			&c.VerificationStatus,
			&c.ReelPassScore,
			&c.LastActive,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		if c.Headline == "" {
			c.Headline = domain.DefaultHeadline
		}
		if c.VerificationStatus == "" {
			c.VerificationStatus = domain.VerificationUnverified
		}
		if c.Languages == nil {
			c.Languages = []string{}
		}
		if c.LocationPreferences == nil {
			c.LocationPreferences = []string{}
		}
		c.Skills = []string{}
		c.Currency = currency
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	// Release the connection before the skills query.
	rows.Close()

	if len(results) == 0 {
		return results, nil
	}
	if err := r.attachSkills(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// attachSkills loads the skills of every result in one query.
func (r *CandidateRepository) attachSkills(ctx context.Context, results []domain.CandidateSearchResult) (err error) {
	query := `
		SELECT profile_id, name
		FROM skills
		WHERE profile_id = ANY($1)
		ORDER BY profile_id, verified DESC, name`

	ctx, end := database.TraceQuery(ctx, "ListCandidateSkills", query)
	defer func() { end(err) }()

	ids := make([]string, len(results))
	index := make(map[string]int, len(results))
	for i, c := range results {
		ids[i] = c.ID
		index[c.ID] = i
	}

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list candidate skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profileID, name string
		if err := rows.Scan(&profileID, &name); err != nil {
			return fmt.Errorf("scan skill row: %w", err)
		}
		if i, ok := index[profileID]; ok {
			results[i].Skills = append(results[i].Skills, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate skill rows: %w", err)
	}
	return nil
}

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// wildcards in s taken literally.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func skillPatterns(skills []string) []string {
	patterns := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			patterns = append(patterns, containsPattern(s))
		}
	}
	return patterns
}
