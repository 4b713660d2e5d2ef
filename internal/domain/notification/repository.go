package notification

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByNotificationID(ctx context.Context, notificationID string) (*Notification, error)
	// Sets read_at only if it is still NULL; reports whether a row changed.
	MarkRead(ctx context.Context, notificationID string, at time.Time) (bool, error)
	// Ordered by seq.
	ListByLoanID(ctx context.Context, loanID uint64, unreadOnly bool) ([]Notification, error)
}
