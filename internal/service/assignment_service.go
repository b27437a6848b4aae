package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/rules"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// TeamLocker serializes round-robin picks within one team.
type TeamLocker interface {
	Lock(ctx context.Context, teamID string) (release func(), err error)
}

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	teams      repository.TeamRepository
	rules      repository.AssignmentRuleRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	locker     TeamLocker
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	TeamRepo    repository.TeamRepository
	RuleRepo    repository.AssignmentRuleRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Locker      TeamLocker
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		teams:      deps.TeamRepo,
		rules:      deps.RuleRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		locker:     deps.Locker,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// AutoAssign runs the assignment rules against the ticket and writes the
// chosen assignee. A ticket that matches no rule, or whose rule target
// resolves to nobody, is returned unchanged.
func (s *AssignmentService) AutoAssign(ctx context.Context, session domain.SessionContext, ticket *domain.Ticket) (*domain.Ticket, error) {
	all, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	rule, ok := rules.FirstMatch(rules.FieldsOf(*ticket), rules.OrderAssignmentRules(all))
	if !ok {
		s.logger.Info("no assignment rule matched", zap.String("ticket_id", ticket.ID))
		s.metrics.RecordAssignment("unassigned")
		return ticket, nil
	}

	if rule.AssignTo.Type == domain.TargetRoundRobin && s.locker != nil {
		release, err := s.locker.Lock(ctx, rule.AssignTo.TeamID)
		switch {
		case err == nil:
			defer release()
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.MapError(err)
		default:
			s.logger.Warn("team lock unavailable; assigning without it",
				zap.String("ticket_id", ticket.ID),
				zap.String("team_id", rule.AssignTo.TeamID),
				zap.Error(err),
			)
		}
	}

	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	userID, ok := rules.ResolveTarget(rule.AssignTo, dir)
	if !ok {
		s.logger.Warn("assignment rule target resolved to nobody",
			zap.String("ticket_id", ticket.ID),
			zap.String("rule_id", rule.ID),
			zap.String("target_type", string(rule.AssignTo.Type)),
			zap.String("team_id", rule.AssignTo.TeamID),
		)
		s.metrics.RecordAssignment("unassigned")
		return ticket, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	if user == nil || !user.Active {
		s.logger.Warn("assignment rule resolved to unknown or inactive user",
			zap.String("ticket_id", ticket.ID),
			zap.String("rule_id", rule.ID),
			zap.String("user_id", userID),
		)
		s.metrics.RecordAssignment("unassigned")
		return ticket, nil
	}

	if err := s.applyAssignment(ctx, session, ticket, userID, &rule.ID); err != nil {
		return nil, err
	}
	s.logger.Info("ticket auto-assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("rule_id", rule.ID),
		zap.String("assignee_id", userID),
	)
	s.metrics.RecordAssignment("assigned")
	return ticket, nil
}

// AutoAssignByID re-runs auto-assignment for an existing open ticket.
func (s *AssignmentService) AutoAssignByID(ctx context.Context, session domain.SessionContext, ticketID string) (*domain.Ticket, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed for assignment", map[string]any{"status": ticket.Status})
	}
	return s.AutoAssign(ctx, session, ticket)
}

// Assign hands the ticket to a specific agent or admin.
func (s *AssignmentService) Assign(ctx context.Context, session domain.SessionContext, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, notFoundOr(err, "user", assigneeID)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": assigneeID})
	}
	if assignee.Role == domain.RoleUser {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{"user_id": assigneeID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed for assignment", map[string]any{"status": ticket.Status})
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo == assigneeID {
		return ticket, nil
	}
	if err := s.applyAssignment(ctx, session, ticket, assigneeID, nil); err != nil {
		return nil, err
	}
	return ticket, nil
}

// loadDirectory snapshots teams, memberships and the open workload of every
// team member.
func (s *AssignmentService) loadDirectory(ctx context.Context) (rules.Directory, error) {
	return loadDirectory(ctx, s.teams, s.tickets)
}

func loadDirectory(ctx context.Context, teams repository.TeamRepository, tickets repository.TicketRepository) (rules.Directory, error) {
	teamList, err := teams.List(ctx)
	if err != nil {
		return rules.Directory{}, apperrors.MapError(err)
	}
	members, err := teams.ListMembers(ctx, "")
	if err != nil {
		return rules.Directory{}, apperrors.MapError(err)
	}
	seen := make(map[string]bool, len(members))
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			userIDs = append(userIDs, m.UserID)
		}
	}
	counts, err := tickets.CountOpenByAssignee(ctx, userIDs)
	if err != nil {
		return rules.Directory{}, apperrors.MapError(err)
	}
	return rules.NewDirectory(teamList, members, counts), nil
}

func (s *AssignmentService) applyAssignment(ctx context.Context, session domain.SessionContext, ticket *domain.Ticket, assigneeID string, ruleID *string) error {
	previous := ticket.AssignedTo
	ticket.AssignedTo = strPtr(assigneeID)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		ticket.AssignedTo = previous
		return apperrors.MapError(err)
	}

	actorType, actorID := actorOf(session)
	newValue := map[string]any{"assigned_to": assigneeID}
	if ruleID != nil {
		newValue["rule_id"] = *ruleID
	}
	if err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue:      map[string]any{"assigned_to": previous},
		NewValue:      newValue,
	}); err != nil {
		return apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.New(events.EventTicketAssigned, ticket.ID, eventActor(session), events.TicketAssignedPayload{
		Key:        ticket.Key,
		Title:      ticket.Title,
		AssigneeID: assigneeID,
		PreviousID: previous,
		RuleID:     ruleID,
	}))
	return nil
}
