package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   domain.ActorType `json:"type"`
	UserID *string          `json:"user_id,omitempty"`
}

// SystemActor is the actor of scheduler and rule driven changes.
var SystemActor = Actor{Type: domain.ActorTypeSystem}

// UserActor builds an actor for a signed-in caller.
func UserActor(userID string) Actor {
	return Actor{Type: domain.ActorTypeUser, UserID: &userID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh ID and the current time.
func New(eventType EventType, ticketID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Key      string            `json:"key"`
	Type     domain.TicketType `json:"type"`
	Priority domain.Priority   `json:"priority"`
	Category string            `json:"category"`
	Title    string            `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority   domain.Priority `json:"old_priority"`
	NewPriority   domain.Priority `json:"new_priority"`
	SLARecomputed bool            `json:"sla_recomputed"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Key        string  `json:"key"`
	Title      string  `json:"title"`
	AssigneeID string  `json:"assignee_id"`
	PreviousID *string `json:"previous_id,omitempty"`
	RuleID     *string `json:"rule_id,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Key           string                  `json:"key"`
	Title         string                  `json:"title"`
	RuleID        string                  `json:"rule_id"`
	RuleName      string                  `json:"rule_name"`
	Action        domain.EscalationAction `json:"action"`
	NotifyUserIDs []string                `json:"notify_user_ids"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string  `json:"comment_id"`
	AuthorID    *string `json:"author_id,omitempty"`
	IsSystem    bool    `json:"is_system"`
	BodyPreview string  `json:"body_preview"`
}
