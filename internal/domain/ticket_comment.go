package domain

import "time"

// TicketComment is a message on a ticket thread. System comments are written
// by escalation actions and have no author.
type TicketComment struct {
	ID        string
	TicketID  string
	AuthorID  *string
	Body      string
	IsSystem  bool
	CreatedAt time.Time
}
