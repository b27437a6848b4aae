package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

var (
	adminSession     = domain.SessionContext{UserID: "admin", Role: domain.RoleAdmin}
	agentSession     = domain.SessionContext{UserID: "alice", Role: domain.RoleAgent}
	requesterSession = domain.SessionContext{UserID: "req", Role: domain.RoleUser}
	otherRequester   = domain.SessionContext{UserID: "req2", Role: domain.RoleUser}
)

type harness struct {
	tickets       *memTickets
	users         *memUsers
	teams         *memTeams
	assignRules   *memAssignmentRules
	escRules      *memEscalationRules
	policies      *memPolicies
	escLog        *memEscalationLog
	comments      *memComments
	history       *memHistory
	notifications *memNotifications
	locker        *recordingLocker
	now           time.Time

	ticketSvc *TicketService
	assignSvc *AssignmentService
	ruleSvc   *RuleService
	escSvc    *EscalationService
	notifySvc *NotificationService
	authSvc   *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tickets: newMemTickets(),
		users: newMemUsers(
			domain.User{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Active: true},
			domain.User{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleAgent, Active: true},
			domain.User{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: domain.RoleAgent, Active: true},
			domain.User{ID: "carol", Name: "Carol", Email: "carol@example.com", Role: domain.RoleAgent, Active: false},
			domain.User{ID: "req", Name: "Requester", Email: "req@example.com", Role: domain.RoleUser, Active: true},
			domain.User{ID: "req2", Name: "Other", Email: "req2@example.com", Role: domain.RoleUser, Active: true},
		),
		teams:         newMemTeams(),
		assignRules:   &memAssignmentRules{},
		escRules:      &memEscalationRules{},
		policies:      &memPolicies{},
		escLog:        newMemEscalationLog(),
		comments:      &memComments{},
		history:       &memHistory{},
		notifications: &memNotifications{},
		locker:        &recordingLocker{},
		now:           time.UnixMilli(1_000_000).UTC(),
	}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)

	h.notifySvc = NewNotificationService(dispatcher, h.notifications, logger, config.NotificationConfig{})
	h.notifySvc.RegisterHandlers()

	h.assignSvc = NewAssignmentService(AssignmentDependencies{
		TicketRepo:  h.tickets,
		UserRepo:    h.users,
		TeamRepo:    h.teams,
		RuleRepo:    h.assignRules,
		HistoryRepo: h.history,
		Dispatcher:  dispatcher,
		Locker:      h.locker,
		Logger:      logger,
	})
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:    h.tickets,
		CommentRepo:   h.comments,
		HistoryRepo:   h.history,
		SLAPolicyRepo: h.policies,
		Assigner:      h.assignSvc,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Clock:         func() time.Time { return h.now },
	})
	h.ruleSvc = NewRuleService(RuleDependencies{
		AssignmentRuleRepo: h.assignRules,
		EscalationRuleRepo: h.escRules,
		SLAPolicyRepo:      h.policies,
		TeamRepo:           h.teams,
		UserRepo:           h.users,
		Logger:             logger,
	})
	h.escSvc = NewEscalationService(EscalationDependencies{
		TicketRepo:        h.tickets,
		UserRepo:          h.users,
		TeamRepo:          h.teams,
		RuleRepo:          h.escRules,
		EscalationLogRepo: h.escLog,
		CommentRepo:       h.comments,
		HistoryRepo:       h.history,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	h.authSvc = NewAuthService(config.AuthConfig{JWTSecret: "test-secret", SessionTTLMinutes: 60, BcryptCost: 4}, AuthDependencies{
		UserRepo: h.users,
		Logger:   logger,
	})
	return h
}

func (h *harness) addTeam(t *testing.T, id, name string, leader *string, members ...string) {
	t.Helper()
	require.NoError(t, h.teams.Create(context.Background(), &domain.Team{ID: id, Name: name, LeaderID: leader}))
	for _, m := range members {
		require.NoError(t, h.teams.AddMember(context.Background(), &domain.TeamMember{TeamID: id, UserID: m, Role: domain.TeamRoleMember}))
	}
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return apperrors.ToDomainError(err).Code
}

func ptr[T any](v T) *T {
	return &v
}
