package mysql

import (
	"context"
	"time"

	notificationDomain "credit-acceleration/internal/domain/notification"

	"gorm.io/gorm"
)

type NotificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notificationDomain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) GetByNotificationID(ctx context.Context, notificationID string) (*notificationDomain.Notification, error) {
	var out notificationDomain.Notification
	res := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, notificationDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationDomain.Notification{}).
		Where("notification_id = ? AND read_at IS NULL", notificationID).
		Update("read_at", at)
	return res.RowsAffected > 0, res.Error
}

func (r *NotificationRepository) ListByLoanID(ctx context.Context, loanNumericID uint64, unreadOnly bool) ([]notificationDomain.Notification, error) {
	q := r.db.WithContext(ctx).Where("loan_id = ?", loanNumericID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []notificationDomain.Notification
	err := q.Order("seq ASC").Find(&out).Error
	return out, err
}
