package screening

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/pkg/daterange"
)

// NoSymptoms is the summary written when no result carries a symptom.
const NoSymptoms = "ไม่มีอาการ"

var (
	ErrNotFound       = errors.New("case not found")
	ErrConflict       = errors.New("case already exists")
	ErrIncompleteCase = errors.New("case has incomplete questions")
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError rejects an assembly and names the offending questions.
type ValidationError struct {
	Message      string   `json:"message"`
	QuestionKeys []string `json:"question_keys,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.QuestionKeys) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.QuestionKeys, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrIncompleteCase
}

// StoredResult is a question result as persisted. CaseID is nil for
// advisory results.
type StoredResult struct {
	ID     uuid.UUID  `json:"id"`
	CaseID *uuid.UUID `json:"case_id,omitempty"`
	question.Result
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// PatientCase is the assembled aggregate of one patient encounter.
type PatientCase struct {
	ID              uuid.UUID       `json:"id"`
	PatientRef      string          `json:"patient_ref"`
	SummaryClinics  []string        `json:"summary_clinics"`
	SummarySymptoms []string        `json:"summary_symptoms"`
	Results         []*StoredResult `json:"results"`
	CreatedBy       string          `json:"created_by"`
	UpdatedBy       string          `json:"updated_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ReferCase reports whether any attached result implies a referral.
func (c *PatientCase) ReferCase() bool {
	for _, r := range c.Results {
		if r.IsReferCase {
			return true
		}
	}
	return false
}

// CaseFilter narrows a case listing. A zero Window means no date filter.
type CaseFilter struct {
	Window daterange.Window
	Clinic string
}

// AnswerSet is the answer state submitted for one selected question.
type AnswerSet struct {
	Question string           `json:"question"`
	Answers  question.Answers `json:"answers"`
}

// CaseRequest is the payload for creating or replacing a case. ID is
// optional on create; a new one is generated when it is nil.
type CaseRequest struct {
	ID         uuid.UUID   `json:"id"`
	PatientRef string      `json:"patient_ref"`
	Questions  []AnswerSet `json:"questions"`
}

// AdvisoryRequest is the payload for an advisory result.
type AdvisoryRequest struct {
	Type     question.ResultType `json:"type"`
	Question string              `json:"question"`
	Answers  question.Answers    `json:"answers"`
}
