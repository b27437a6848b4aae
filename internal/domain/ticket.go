package domain

import "time"

// TicketType classifies the nature of a request.
type TicketType string

const (
	TicketTypeIncident       TicketType = "incident"
	TicketTypeServiceRequest TicketType = "service_request"
	TicketTypeInquiry        TicketType = "inquiry"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew          TicketStatus = "new"
	TicketStatusNeedApproval TicketStatus = "need_approval"
	TicketStatusInProgress   TicketStatus = "in_progress"
	TicketStatusOnHold       TicketStatus = "on_hold"
	TicketStatusResolved     TicketStatus = "resolved"
	TicketStatusClosed       TicketStatus = "closed"
	TicketStatusRejected     TicketStatus = "rejected"
)

// Priority enumerates ticket priority and SLA policy keys.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Urgency is the requester-reported urgency.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// LoadBearingStatuses are the statuses counted as an agent's open workload.
var LoadBearingStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusOnHold,
}

// Ticket is the aggregate for service desk requests.
type Ticket struct {
	ID          string
	Key         string
	Title       string
	Description string
	Type        TicketType
	Status      TicketStatus
	Priority    Priority
	Urgency     Urgency
	Category    string
	CreatedBy   string
	AssignedTo  *string
	SLADeadline *time.Time
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether the ticket no longer takes part in escalation.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusRejected:
		return true
	}
	return false
}

// IsLoadBearing reports whether a ticket in this status counts toward an
// assignee's open workload.
func (s TicketStatus) IsLoadBearing() bool {
	for _, st := range LoadBearingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Valid reports whether the status is known.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusNeedApproval, TicketStatusInProgress, TicketStatusOnHold,
		TicketStatusResolved, TicketStatusClosed, TicketStatusRejected:
		return true
	}
	return false
}

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Valid reports whether the ticket type is known.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeIncident, TicketTypeServiceRequest, TicketTypeInquiry:
		return true
	}
	return false
}

// Valid reports whether the urgency is known.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}
