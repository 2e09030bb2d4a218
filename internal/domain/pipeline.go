package domain

import "time"

// Stage is a column of a recruiter's pipeline.
type Stage struct {
	ID                string      `json:"id"`
	RecruiterID       ProfileID   `json:"recruiter_id"`
	Name              string      `json:"stage_name"`
	Order             int         `json:"stage_order"`
	Color             string      `json:"stage_color,omitempty"`
	AutoEmailTemplate string      `json:"auto_email_template,omitempty"`
	IsActive          bool        `json:"is_active"`
	Persisted         bool        `json:"persisted"`
	Candidates        []Candidate `json:"candidates"`
}

// HasTemplate reports whether moving a candidate into the stage notifies them.
func (s *Stage) HasTemplate() bool {
	return s.AutoEmailTemplate != ""
}

// Candidate is a person positioned in exactly one stage.
type Candidate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	EnteredStageAt time.Time `json:"entered_stage_at"`
}

// Position is a candidate's row in the pipeline as stored.
type Position struct {
	ID              string
	CandidateID     string
	RecruiterID     ProfileID
	CurrentStageID  string
	PreviousStageID *string
	MovedAt         time.Time
	MovedBy         *string
	Notes           *string
	CandidateName   string
	CandidateEmail  string
}

// MoveRecord is one entry of the move audit trail.
type MoveRecord struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	RecruiterID ProfileID `json:"recruiter_id"`
	FromStageID string    `json:"from_stage_id"`
	ToStageID   string    `json:"to_stage_id"`
	MovedBy     string    `json:"moved_by"`
	MovedAt     time.Time `json:"moved_at"`
	Notes       string    `json:"notes,omitempty"`
}
