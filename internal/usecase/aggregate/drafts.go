package aggregate

import (
	"fmt"

	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
)

// statusDraft derives the notification for a status change. Approval,
// denial and default are high priority.
func statusDraft(loanID string, from, to loan.Status) notification.Draft {
	d := notification.Draft{
		Type:     "status_" + string(to),
		Title:    "Loan " + string(to),
		Message:  fmt.Sprintf("Loan %s moved from %s to %s.", loanID, from, to),
		Priority: notification.PriorityMedium,
	}
	switch to {
	case loan.StatusApproved:
		d.Title = "Loan approved"
		d.Priority = notification.PriorityHigh
		d.ActionRequired = true
	case loan.StatusDenied:
		d.Title = "Loan denied"
		d.Priority = notification.PriorityHigh
	case loan.StatusDefaulted:
		d.Title = "Loan defaulted"
		d.Priority = notification.PriorityHigh
		d.ActionRequired = true
	case loan.StatusFunded:
		d.Title = "Loan funded"
	case loan.StatusPaidOff:
		d.Title = "Loan paid off"
		d.Priority = notification.PriorityLow
	case loan.StatusProcessing:
		d.Priority = notification.PriorityLow
	}
	return d
}
