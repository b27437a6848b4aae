package rules

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// PolicyFor returns the first enabled policy for the priority, in the order
// presented.
func PolicyFor(priority domain.Priority, policies []domain.SLAPolicy) (domain.SLAPolicy, bool) {
	for _, p := range policies {
		if p.Enabled && p.Priority == priority {
			return p, true
		}
	}
	return domain.SLAPolicy{}, false
}

// ComputeDeadline returns createdAt plus the matching policy's resolution
// time. Tickets without an enabled policy have no deadline.
func ComputeDeadline(priority domain.Priority, policies []domain.SLAPolicy, createdAt time.Time) (time.Time, bool) {
	p, ok := PolicyFor(priority, policies)
	if !ok {
		return time.Time{}, false
	}
	return createdAt.Add(time.Duration(p.ResolutionTime) * time.Minute), true
}

// ComputeResponseDeadline is ComputeDeadline for the first-response target.
func ComputeResponseDeadline(priority domain.Priority, policies []domain.SLAPolicy, createdAt time.Time) (time.Time, bool) {
	p, ok := PolicyFor(priority, policies)
	if !ok {
		return time.Time{}, false
	}
	return createdAt.Add(time.Duration(p.ResponseTime) * time.Minute), true
}

// Overdue returns how far past its deadline a ticket is at now. Tickets
// without a deadline, or not yet due, report false.
func Overdue(deadline *time.Time, now time.Time) (time.Duration, bool) {
	if deadline == nil {
		return 0, false
	}
	d := now.Sub(*deadline)
	if d < 0 {
		return 0, false
	}
	return d, true
}
