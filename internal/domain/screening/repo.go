package screening

import (
	"context"

	"github.com/google/uuid"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/pkg/daterange"
)

// CaseRepository defines the persistence interface for patient cases.
type CaseRepository interface {
	// CreateCase inserts a new case with its result rows. It returns
	// ErrConflict when the id is already taken.
	CreateCase(ctx context.Context, c *PatientCase) error
	// ReplaceCaseQuestionResults writes the case header and replaces every
	// attached result row with c.Results in one atomic operation. The case
	// is created when it does not exist.
	ReplaceCaseQuestionResults(ctx context.Context, c *PatientCase) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientCase, error)
	List(ctx context.Context, filter CaseFilter, limit, offset int) ([]*PatientCase, int, error)
	// DeleteCase removes the case and its rows. It returns ErrNotFound when
	// no case matched.
	DeleteCase(ctx context.Context, id uuid.UUID) error
}

// ResultRepository defines the persistence interface for question result
// rows across cases and advisory workflows.
type ResultRepository interface {
	CreateAdvisory(ctx context.Context, r *StoredResult) error
	// FetchQuestionResults returns rows whose type is in types and whose
	// created_at falls inside w, bounds inclusive. Empty types and a zero
	// window do not filter.
	FetchQuestionResults(ctx context.Context, types []question.ResultType, w daterange.Window) ([]*StoredResult, error)
}
