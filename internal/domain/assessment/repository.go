package assessment

import "context"

type Repository interface {
	Create(ctx context.Context, a *Assessment) error

	// Latest assessment produced for a loan (numeric id)
	GetLatestByLoanID(ctx context.Context, loanID uint64) (*Assessment, error)

	// Get by public assessment_id
	GetByAssessmentID(ctx context.Context, assessmentID string) (*Assessment, error)
}
