package loan

import (
	"time"

	"credit-acceleration/internal/domain/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusDenied     Status = "denied"
	StatusFunded     Status = "funded"
	StatusActive     Status = "active"
	StatusDefaulted  Status = "defaulted"
	StatusPaidOff    Status = "paid_off"
)

var AllStatuses = []Status{
	StatusPending, StatusProcessing, StatusApproved, StatusDenied,
	StatusFunded, StatusActive, StatusDefaulted, StatusPaidOff,
}

// transitions is the only source of truth for the status machine.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusApproved, StatusDenied},
	StatusApproved:   {StatusFunded},
	StatusFunded:     {StatusActive},
	StatusActive:     {StatusDefaulted, StatusPaidOff},
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal statuses have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusDefaulted || s == StatusPaidOff
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the loan to `to`, stamping StatusUpdatedAt and appending a
// processing note. It fails with apperr.ErrInvalidTransition when `to` is not
// reachable from the current status.
func (l *Loan) Transition(to Status, note string, at time.Time) error {
	if !to.Valid() {
		return apperr.Validation("unknown loan status %q", to)
	}
	from := l.Status
	if !CanTransition(from, to) {
		return apperr.InvalidTransition("loan %s cannot move from %s to %s", l.LoanID, from, to)
	}
	l.Status = to
	l.StatusUpdatedAt = at
	if note == "" {
		note = "status changed from " + string(from) + " to " + string(to)
	}
	l.AddNote(at, from, to, note)
	return nil
}
