package mysql

import (
	"context"

	assessmentDomain "credit-acceleration/internal/domain/assessment"

	"gorm.io/gorm"
)

type AssessmentRepository struct{ db *gorm.DB }

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Create(ctx context.Context, a *assessmentDomain.Assessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AssessmentRepository) GetLatestByLoanID(ctx context.Context, loanNumericID uint64) (*assessmentDomain.Assessment, error) {
	var out assessmentDomain.Assessment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("id DESC").
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, assessmentDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *AssessmentRepository) GetByAssessmentID(ctx context.Context, assessmentID string) (*assessmentDomain.Assessment, error) {
	var out assessmentDomain.Assessment
	res := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, assessmentDomain.ErrNotFound)
	}
	return &out, nil
}
