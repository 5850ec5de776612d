package models

import "time"

// AssessmentStatus tracks an assessment record's lifecycle.
type AssessmentStatus string

const (
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentCompleted  AssessmentStatus = "completed"
	AssessmentAbandoned  AssessmentStatus = "abandoned"
)

// Assessment is one user's assessment run.
type Assessment struct {
	ID          string           `json:"id"`
	UserID      int              `json:"user_id"`
	Status      AssessmentStatus `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ProgressSnapshot is the save/resume unit for an in-flight assessment:
// every response captured so far plus the position to resume at.
type ProgressSnapshot struct {
	AssessmentID         string     `json:"assessment_id"`
	Responses            []Response `json:"responses"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	SavedAt              time.Time  `json:"saved_at"`
}

// SectionProgress reports answered/total counts for one section.
type SectionProgress struct {
	Section  Section `json:"section"`
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
}
