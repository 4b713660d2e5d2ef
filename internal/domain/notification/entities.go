package notification

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
)

var ErrNotFound = fmt.Errorf("%w: notification", apperr.ErrNotFound)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Table: loan_notifications. Immutable except for ReadAt, which is set once.
// Seq is gap-free per loan so consumers can detect missed events.
type Notification struct {
	ID             uint64     `gorm:"primaryKey;column:id" json:"-"`
	NotificationID string     `gorm:"size:32;not null;uniqueIndex:ux_notifications_id" json:"notification_id"`
	LoanID         uint64     `gorm:"not null;uniqueIndex:ux_notifications_loan_seq" json:"-"`
	LoanPublicID   string     `gorm:"size:32;not null" json:"loan_id"`
	Seq            uint64     `gorm:"not null;uniqueIndex:ux_notifications_loan_seq" json:"seq"`
	Type           string     `gorm:"size:48" json:"type"`
	Title          string     `gorm:"size:128" json:"title"`
	Message        string     `gorm:"size:1024" json:"message"`
	Priority       Priority   `gorm:"size:16" json:"priority"`
	ActionRequired bool       `json:"action_required"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

func (Notification) TableName() string { return "loan_notifications" }

// Draft is a notification before it is numbered and stored.
type Draft struct {
	Type           string
	Title          string
	Message        string
	Priority       Priority
	ActionRequired bool
}
