package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/rules"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// EscalationService periodically evaluates escalation rules against open
// tickets and applies the planned actions.
type EscalationService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	teams      repository.TeamRepository
	rules      repository.EscalationRuleRepository
	log        repository.EscalationLogRepository
	comments   repository.TicketCommentRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	// runs never overlap
	mu sync.Mutex
}

// EscalationDependencies bundles repositories for the escalation service.
type EscalationDependencies struct {
	TicketRepo        repository.TicketRepository
	UserRepo          repository.UserRepository
	TeamRepo          repository.TeamRepository
	RuleRepo          repository.EscalationRuleRepository
	EscalationLogRepo repository.EscalationLogRepository
	CommentRepo       repository.TicketCommentRepository
	HistoryRepo       repository.TicketHistoryRepository
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Metrics           *observability.Metrics
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		teams:      deps.TeamRepo,
		rules:      deps.RuleRepo,
		log:        deps.EscalationLogRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Trigger runs an escalation pass on behalf of an admin.
func (s *EscalationService) Trigger(ctx context.Context, session domain.SessionContext, now time.Time) ([]domain.EscalationAction, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	return s.Run(ctx, now)
}

// Run evaluates every open ticket at now against the rules that have not yet
// fired for it and applies the first match. It returns the bundles that were
// applied. A failure on one ticket does not stop the others.
func (s *EscalationService) Run(ctx context.Context, now time.Time) ([]domain.EscalationAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ruleList, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	dir, err := loadDirectory(ctx, s.teams, s.tickets)
	if err != nil {
		return nil, err
	}

	ticketIDs := make([]string, 0, len(open))
	for _, t := range open {
		ticketIDs = append(ticketIDs, t.ID)
	}
	fired, err := s.log.Applied(ctx, ticketIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// Rules already fired for a ticket are withheld from it, so the next
	// matching tier takes over on later runs.
	var planned []domain.EscalationAction
	for _, t := range open {
		candidates := ruleList
		if done := fired[t.ID]; len(done) > 0 {
			candidates = make([]domain.EscalationRule, 0, len(ruleList))
			for _, r := range ruleList {
				if !done[r.ID] {
					candidates = append(candidates, r)
				}
			}
		}
		planned = append(planned, rules.Evaluate([]domain.Ticket{t}, candidates, dir, now)...)
	}

	applied := []domain.EscalationAction{}
	if len(planned) == 0 {
		s.metrics.RecordEscalationRun(0)
		return applied, nil
	}

	ticketsByID := make(map[string]domain.Ticket, len(open))
	for _, t := range open {
		ticketsByID[t.ID] = t
	}
	rulesByID := make(map[string]domain.EscalationRule, len(ruleList))
	for _, r := range ruleList {
		rulesByID[r.ID] = r
	}

	for _, action := range planned {
		ticket := ticketsByID[action.TicketID]
		result, err := s.apply(ctx, &ticket, rulesByID[action.RuleID], action)
		if err != nil {
			s.logger.Error("escalation apply failed",
				zap.String("ticket_id", action.TicketID),
				zap.String("rule_id", action.RuleID),
				zap.Error(err),
			)
			continue
		}
		applied = append(applied, result)
	}

	s.logger.Info("escalation run finished",
		zap.Int("open_tickets", len(open)),
		zap.Int("planned", len(planned)),
		zap.Int("applied", len(applied)),
	)
	s.metrics.RecordEscalationRun(len(applied))
	return applied, nil
}

// apply executes one bundle. Effects that would not change the ticket are
// dropped from the returned bundle.
func (s *EscalationService) apply(ctx context.Context, ticket *domain.Ticket, rule domain.EscalationRule, action domain.EscalationAction) (domain.EscalationAction, error) {
	var entries []*domain.TicketHistory
	changes := map[string]any{"rule_id": rule.ID, "rule_name": rule.Name}
	changed := false

	if action.ReassignTo != nil {
		target := *action.ReassignTo
		switch {
		case ticket.AssignedTo != nil && *ticket.AssignedTo == target:
			action.ReassignTo = nil
		case !s.activeUser(ctx, target):
			s.logger.Warn("escalation reassign target unknown or inactive",
				zap.String("ticket_id", ticket.ID),
				zap.String("rule_id", rule.ID),
				zap.String("user_id", target),
			)
			action.ReassignTo = nil
		default:
			entries = append(entries, systemEntry(ticket.ID, domain.ChangeTypeAssignee,
				map[string]any{"assigned_to": ticket.AssignedTo},
				map[string]any{"assigned_to": target, "rule_id": rule.ID},
			))
			ticket.AssignedTo = strPtr(target)
			changes["assigned_to"] = target
			changed = true
		}
	}

	if action.NewPriority != nil {
		if *action.NewPriority == ticket.Priority {
			action.NewPriority = nil
		} else {
			entries = append(entries, systemEntry(ticket.ID, domain.ChangeTypePriority,
				map[string]any{"priority": ticket.Priority},
				map[string]any{"priority": *action.NewPriority, "rule_id": rule.ID},
			))
			ticket.Priority = *action.NewPriority
			changes["priority"] = *action.NewPriority
			changed = true
		}
	}

	if changed {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return action, err
		}
	}

	if action.CommentText != nil {
		comment := &domain.TicketComment{TicketID: ticket.ID, Body: *action.CommentText, IsSystem: true}
		if err := s.comments.Create(ctx, comment); err != nil {
			return action, err
		}
		changes["comment_id"] = comment.ID
	}

	changes["notified"] = action.NotifyUserIDs
	entries = append(entries, systemEntry(ticket.ID, domain.ChangeTypeEscalation, nil, changes))
	if err := s.history.CreateBatch(ctx, entries); err != nil {
		return action, err
	}
	if err := s.log.Record(ctx, ticket.ID, rule.ID); err != nil {
		return action, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventTicketEscalated, ticket.ID, events.SystemActor, events.TicketEscalatedPayload{
		Key:           ticket.Key,
		Title:         ticket.Title,
		RuleID:        rule.ID,
		RuleName:      rule.Name,
		Action:        action,
		NotifyUserIDs: action.NotifyUserIDs,
	}))
	s.logger.Info("ticket escalated",
		zap.String("ticket_id", ticket.ID),
		zap.String("rule_id", rule.ID),
		zap.Bool("reassigned", action.ReassignTo != nil),
		zap.Bool("priority_changed", action.NewPriority != nil),
		zap.Int("notify_count", len(action.NotifyUserIDs)),
	)
	return action, nil
}

func (s *EscalationService) activeUser(ctx context.Context, userID string) bool {
	user, err := s.users.GetByID(ctx, userID)
	return err == nil && user.Active
}

func systemEntry(ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) *domain.TicketHistory {
	return &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.ActorTypeSystem,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
}
