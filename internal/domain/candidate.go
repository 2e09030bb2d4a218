package domain

import (
	"strings"
	"time"
)

// Candidate search limits.
const (
	CandidateSearchLimit = 50
	ReelPassThreshold    = 60
	DefaultCurrency      = "USD"
	DefaultHeadline      = "Professional"
)

// Availability statuses stored for a candidate.
const (
	AvailabilityAvailable   = "available"
	AvailabilityEmployed    = "employed"
	AvailabilityUnavailable = "unavailable"
)

// Verification statuses of a candidate's ReelPass.
const (
	VerificationVerified   = "verified"
	VerificationPartial    = "partial"
	VerificationUnverified = "unverified"
)

// Provinces lists the South African provinces a candidate can be based in.
var Provinces = []string{
	"Eastern Cape", "Free State", "Gauteng", "KwaZulu-Natal", "Limpopo",
	"Mpumalanga", "Northern Cape", "North West", "Western Cape",
}

// BEELevels lists the B-BBEE levels a candidate can report.
var BEELevels = []string{
	"Level 1", "Level 2", "Level 3", "Level 4",
	"Exempted Micro Enterprise", "Qualifying Small Enterprise", "Not Applicable",
}

// Languages lists the official languages a candidate can speak.
var Languages = []string{
	"Afrikaans", "English", "Zulu", "Xhosa", "Sotho", "Tswana",
	"Pedi", "Venda", "Tsonga", "Swati", "Ndebele",
}

// availabilityLabels maps the labels shown in the search form to the stored
// statuses they select. "Open to opportunities" covers everyone who is not
// marked unavailable.
var availabilityLabels = map[string][]string{
	"available immediately": {AvailabilityAvailable},
	"available in 2 weeks":  {AvailabilityAvailable},
	"available in 1 month":  {AvailabilityAvailable},
	"open to opportunities": {AvailabilityAvailable, AvailabilityEmployed},
	AvailabilityAvailable:   {AvailabilityAvailable},
	AvailabilityEmployed:    {AvailabilityEmployed},
	AvailabilityUnavailable: {AvailabilityUnavailable},
}

// SearchFilters narrows a candidate search. Zero values do not filter.
type SearchFilters struct {
	Query        string
	ReelPassOnly bool
	Availability string
	SalaryMin    *int
	SalaryMax    *int
	Location     string
	Province     string
	BEELevel     string
	Skills       []string
	Languages    []string
	Currency     string
}

// AvailabilityStatuses returns the stored statuses selected by the
// availability filter, or nil when it selects nothing known.
func (f SearchFilters) AvailabilityStatuses() []string {
	return availabilityLabels[strings.ToLower(strings.TrimSpace(f.Availability))]
}

// ResultCurrency is the currency salary expectations are reported in.
func (f SearchFilters) ResultCurrency() string {
	if c := strings.TrimSpace(f.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

// CanonicalLanguages resolves each requested language to its listed
// spelling, case-insensitively. Unknown names are kept as given.
func (f SearchFilters) CanonicalLanguages() []string {
	out := make([]string, 0, len(f.Languages))
	for _, l := range f.Languages {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		for _, known := range Languages {
			if strings.EqualFold(l, known) {
				l = known
				break
			}
		}
		out = append(out, l)
	}
	return out
}

// NormalizeEnum folds a label to its comparison key: lower case with runs of
// spaces replaced by underscores. "Western Cape" and "western_cape" match.
func NormalizeEnum(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// CandidateSearchResult is one candidate returned by a search.
type CandidateSearchResult struct {
	ID                   string     `json:"id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Headline             string     `json:"headline"`
	Email                string     `json:"email"`
	ReelPassScore        int        `json:"reelpass_score"`
	VerificationStatus   string     `json:"verification_status"`
	AvailabilityStatus   string     `json:"availability_status"`
	AvailableFrom        *time.Time `json:"available_from,omitempty"`
	NoticePeriodDays     *int       `json:"notice_period_days,omitempty"`
	SalaryExpectationMin *int       `json:"salary_expectation_min,omitempty"`
	SalaryExpectationMax *int       `json:"salary_expectation_max,omitempty"`
	PreferredWorkType    string     `json:"preferred_work_type,omitempty"`
	LocationPreferences  []string   `json:"location_preferences"`
	Skills               []string   `json:"skills"`
	LastActive           time.Time  `json:"last_active"`
	Currency             string     `json:"currency"`
	Province             string     `json:"province,omitempty"`
	BEEStatus            string     `json:"bee_status,omitempty"`
	Languages            []string   `json:"languages"`
}

// FullName joins the first and last name, skipping blanks.
func (c *CandidateSearchResult) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}
