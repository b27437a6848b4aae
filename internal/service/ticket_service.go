package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/rules"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// AutoAssigner assigns a freshly created ticket.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, session domain.SessionContext, ticket *domain.Ticket) (*domain.Ticket, error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.TicketCommentRepository
	history    repository.TicketHistoryRepository
	policies   repository.SLAPolicyRepository
	assigner   AutoAssigner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CommentRepo   repository.TicketCommentRepository
	HistoryRepo   repository.TicketHistoryRepository
	SLAPolicyRepo repository.SLAPolicyRepository
	Assigner      AutoAssigner
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// TicketCreateInput describes ticket creation payload. Zero enum values take
// the service defaults.
type TicketCreateInput struct {
	Title       string
	Description string
	Type        domain.TicketType
	Priority    domain.Priority
	Urgency     domain.Urgency
	Category    string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	AssignedTo  *string
	Category    *string
	Types       []domain.TicketType
	Statuses    []domain.TicketStatus
	Priorities  []domain.Priority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		policies:   deps.SLAPolicyRepo,
		assigner:   deps.Assigner,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create opens a ticket, stamps its SLA deadline and runs auto-assignment.
func (s *TicketService) Create(ctx context.Context, session domain.SessionContext, input TicketCreateInput) (*domain.Ticket, error) {
	if session.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Status:      domain.TicketStatusNew,
		Priority:    input.Priority,
		Urgency:     input.Urgency,
		Category:    strings.TrimSpace(input.Category),
		CreatedBy:   session.UserID,
		CreatedAt:   s.now().UTC(),
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeIncident
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.PriorityMedium
	}
	if ticket.Urgency == "" {
		ticket.Urgency = domain.UrgencyMedium
	}
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}
	ticket.Key = generateTicketKey(ticket.Type)

	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if deadline, ok := rules.ComputeDeadline(ticket.Priority, policies, ticket.CreatedAt); ok {
		ticket.SLADeadline = &deadline
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.record(ctx, session, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"status":       ticket.Status,
		"priority":     ticket.Priority,
		"sla_deadline": ticket.SLADeadline,
	}); err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.New(events.EventTicketCreated, ticket.ID, eventActor(session), events.TicketCreatedPayload{
		Key:      ticket.Key,
		Type:     ticket.Type,
		Priority: ticket.Priority,
		Category: ticket.Category,
		Title:    ticket.Title,
	}))

	if s.assigner != nil {
		// the ticket exists either way; a failed assignment leaves it unassigned
		if assigned, err := s.assigner.AutoAssign(ctx, domain.SessionContext{}, ticket); err != nil {
			s.logger.Warn("auto-assignment failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			ticket = assigned
		}
	}
	return ticket, nil
}

// Get returns a ticket the caller may see.
func (s *TicketService) Get(ctx context.Context, session domain.SessionContext, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !canSee(session, ticket) {
		// hide existence from requesters
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

// List returns tickets visible to the caller. Requesters only see their own.
func (s *TicketService) List(ctx context.Context, session domain.SessionContext, filter TicketListFilter) ([]domain.Ticket, error) {
	if session.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.TicketFilter{
		AssignedTo:  filter.AssignedTo,
		Category:    filter.Category,
		Types:       filter.Types,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !session.IsStaff() {
		repoFilter.CreatedBy = strPtr(session.UserID)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// UpdateStatus moves a ticket along its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, session domain.SessionContext, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	oldStatus := ticket.Status
	if !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		})
	}

	ticket.Status = newStatus
	switch {
	case newStatus == domain.TicketStatusResolved:
		resolvedAt := s.now().UTC()
		ticket.ResolvedAt = &resolvedAt
	case oldStatus == domain.TicketStatusResolved && !newStatus.IsTerminal():
		ticket.ResolvedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.record(ctx, session, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus},
	); err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.New(events.EventTicketStatusChanged, ticket.ID, eventActor(session), events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}))
	return ticket, nil
}

// UpdatePriority changes ticket priority. The SLA deadline is left alone
// unless recomputeSLA is set, in which case it is recalculated from the
// ticket's creation time under the new priority.
func (s *TicketService) UpdatePriority(ctx context.Context, session domain.SessionContext, ticketID string, newPriority domain.Priority, recomputeSLA bool) (*domain.Ticket, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	oldPriority := ticket.Priority
	oldDeadline := ticket.SLADeadline
	ticket.Priority = newPriority

	if recomputeSLA {
		policies, err := s.policies.List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.SLADeadline = nil
		if deadline, ok := rules.ComputeDeadline(newPriority, policies, ticket.CreatedAt); ok {
			ticket.SLADeadline = &deadline
		}
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.record(ctx, session, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority},
	); err != nil {
		return nil, err
	}
	if recomputeSLA {
		if err := s.record(ctx, session, ticket.ID, domain.ChangeTypeSLA,
			map[string]any{"sla_deadline": oldDeadline},
			map[string]any{"sla_deadline": ticket.SLADeadline},
		); err != nil {
			return nil, err
		}
	}
	publish(ctx, s.dispatcher, events.New(events.EventTicketPriorityChanged, ticket.ID, eventActor(session), events.TicketPriorityChangedPayload{
		OldPriority:   oldPriority,
		NewPriority:   newPriority,
		SLARecomputed: recomputeSLA,
	}))
	return ticket, nil
}

// AddComment appends a comment to a ticket the caller may see.
func (s *TicketService) AddComment(ctx context.Context, session domain.SessionContext, ticketID, body string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.Get(ctx, session, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.TicketComment{
		TicketID: ticket.ID,
		AuthorID: strPtr(session.UserID),
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.New(events.EventTicketCommentAdded, ticket.ID, eventActor(session), events.TicketCommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    comment.AuthorID,
		BodyPreview: stringPreview(comment.Body, 120),
	}))
	return comment, nil
}

// ListComments returns the ticket thread in posting order.
func (s *TicketService) ListComments(ctx context.Context, session domain.SessionContext, ticketID string) ([]domain.TicketComment, error) {
	if _, err := s.Get(ctx, session, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if comments == nil {
		comments = []domain.TicketComment{}
	}
	return comments, nil
}

// ListHistory returns the audit trail. Requesters only see status and
// assignee changes.
func (s *TicketService) ListHistory(ctx context.Context, session domain.SessionContext, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, session, ticketID); err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	allowed := []domain.TicketHistory{}
	for _, entry := range history {
		if session.IsStaff() || entry.ChangeType == domain.ChangeTypeStatus || entry.ChangeType == domain.ChangeTypeAssignee {
			allowed = append(allowed, entry)
		}
	}
	return allowed, nil
}

func (s *TicketService) record(ctx context.Context, session domain.SessionContext, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	actorType, actorID := actorOf(session)
	if err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func validateTicket(t *domain.Ticket) error {
	details := map[string]any{}
	if t.Title == "" {
		details["title"] = "required"
	}
	if !t.Type.Valid() {
		details["type"] = "oneof incident service_request inquiry"
	}
	if !t.Priority.Valid() {
		details["priority"] = "oneof low medium high critical"
	}
	if !t.Urgency.Valid() {
		details["urgency"] = "oneof low medium high"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func canSee(session domain.SessionContext, ticket *domain.Ticket) bool {
	return session.IsStaff() || (session.UserID != "" && ticket.CreatedBy == session.UserID)
}

var keyPrefixes = map[domain.TicketType]string{
	domain.TicketTypeIncident:       "INC",
	domain.TicketTypeServiceRequest: "REQ",
	domain.TicketTypeInquiry:        "INQ",
}

func generateTicketKey(t domain.TicketType) string {
	return keyPrefixes[t] + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:          {domain.TicketStatusNeedApproval, domain.TicketStatusInProgress, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusRejected},
	domain.TicketStatusNeedApproval: {domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.TicketStatusInProgress:   {domain.TicketStatusOnHold, domain.TicketStatusResolved},
	domain.TicketStatusOnHold:       {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:     {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:       {},
	domain.TicketStatusRejected:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
