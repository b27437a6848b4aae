package domain

import "time"

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotificationTicketAssigned  NotificationKind = "ticket_assigned"
	NotificationTicketEscalated NotificationKind = "ticket_escalated"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        string
	UserID    string
	TicketID  *string
	Kind      NotificationKind
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
