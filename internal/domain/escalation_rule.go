package domain

import "time"

// EscalationConditions are ANDed together. Empty lists match any value;
// a nil OverdueBy places no time restriction.
type EscalationConditions struct {
	Priorities []Priority     `json:"priorities"`
	Statuses   []TicketStatus `json:"statuses"`
	OverdueBy  *int           `json:"overdue_by,omitempty"`
}

// EscalationActions describe what happens to a matching ticket.
type EscalationActions struct {
	NotifyUsers    []string      `json:"notify_users"`
	NotifyTeams    []string      `json:"notify_teams"`
	ReassignTo     *AssignTarget `json:"reassign_to,omitempty"`
	ChangePriority *Priority     `json:"change_priority,omitempty"`
	AddComment     string        `json:"add_comment,omitempty"`
}

// EscalationRule is evaluated periodically against open tickets.
type EscalationRule struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Priority    int
	Conditions  EscalationConditions
	Actions     EscalationActions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EscalationAction is the planned outcome of one rule on one ticket.
type EscalationAction struct {
	TicketID      string    `json:"ticket_id"`
	RuleID        string    `json:"rule_id"`
	ReassignTo    *string   `json:"reassign_to,omitempty"`
	NewPriority   *Priority `json:"new_priority,omitempty"`
	NotifyUserIDs []string  `json:"notify_user_ids"`
	CommentText   *string   `json:"comment_text,omitempty"`
}

// Empty reports whether the bundle carries no effect.
func (a EscalationAction) Empty() bool {
	return a.ReassignTo == nil && a.NewPriority == nil && len(a.NotifyUserIDs) == 0 && a.CommentText == nil
}
