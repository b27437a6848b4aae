package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func TestAssignmentRuleLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addTeam(t, "team-net", "Network", nil, "bob")

	_, err := h.ruleSvc.CreateAssignmentRule(ctx, agentSession, AssignmentRuleInput{Name: "x"})
	assert.Equal(t, "FORBIDDEN", errorCode(err))

	rule, err := h.ruleSvc.CreateAssignmentRule(ctx, adminSession, AssignmentRuleInput{
		Name:       "Network to round robin",
		Priority:   5,
		Conditions: domain.AssignmentConditions{Categories: []string{"network"}},
		AssignTo:   domain.AssignTarget{Type: domain.TargetRoundRobin, TeamID: "team-net"},
	})
	require.NoError(t, err)
	assert.True(t, rule.IsActive)

	toggled, err := h.ruleSvc.ToggleAssignmentRule(ctx, adminSession, rule.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	ticket, err := h.ticketSvc.Create(ctx, requesterSession, TicketCreateInput{Title: "vpn", Category: "network"})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedTo, "inactive rules never match")

	_, err = h.ruleSvc.ToggleAssignmentRule(ctx, adminSession, rule.ID)
	require.NoError(t, err)
	ticket, err = h.ticketSvc.Create(ctx, requesterSession, TicketCreateInput{Title: "vpn again", Category: "network"})
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "bob", *ticket.AssignedTo)

	require.NoError(t, h.ruleSvc.DeleteAssignmentRule(ctx, adminSession, rule.ID))
	_, err = h.ruleSvc.GetAssignmentRule(ctx, adminSession, rule.ID)
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}

func TestAssignmentRuleTargetValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		target domain.AssignTarget
		field  string
	}{
		{"unknown team", domain.AssignTarget{Type: domain.TargetTeam, TeamID: "nope"}, "assign_to.team_id"},
		{"missing team", domain.AssignTarget{Type: domain.TargetRoundRobin}, "assign_to.team_id"},
		{"unknown agent", domain.AssignTarget{Type: domain.TargetAgent, AgentID: "ghost"}, "assign_to.agent_id"},
		{"requester agent", domain.AssignTarget{Type: domain.TargetAgent, AgentID: "req"}, "assign_to.agent_id"},
		{"bad type", domain.AssignTarget{Type: "random"}, "assign_to.type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.ruleSvc.CreateAssignmentRule(ctx, adminSession, AssignmentRuleInput{Name: "r", AssignTo: tc.target})
			require.Error(t, err)
			derr := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", derr.Code)
			assert.Contains(t, derr.Details, tc.field)
		})
	}

	_, err := h.ruleSvc.CreateAssignmentRule(ctx, adminSession, AssignmentRuleInput{
		AssignTo: domain.AssignTarget{Type: domain.TargetAgent, AgentID: "alice"},
	})
	derr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", derr.Code)
	assert.Contains(t, derr.Details, "Name")
}

func TestEscalationRuleRequiresAnAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ruleSvc.CreateEscalationRule(ctx, adminSession, EscalationRuleInput{
		Name:       "noop",
		Conditions: domain.EscalationConditions{OverdueBy: ptr(30)},
	})
	derr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", derr.Code)
	assert.Contains(t, derr.Details, "actions")

	_, err = h.ruleSvc.CreateEscalationRule(ctx, adminSession, EscalationRuleInput{
		Name:       "negative",
		Conditions: domain.EscalationConditions{OverdueBy: ptr(-1)},
		Actions:    domain.EscalationActions{AddComment: "late"},
	})
	assert.Contains(t, apperrors.ToDomainError(err).Details, "conditions.overdue_by")

	rule, err := h.ruleSvc.CreateEscalationRule(ctx, adminSession, EscalationRuleInput{
		Name:       "notify admin",
		Conditions: domain.EscalationConditions{OverdueBy: ptr(30)},
		Actions:    domain.EscalationActions{NotifyUsers: []string{"admin"}, AddComment: "  late  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "late", rule.Actions.AddComment)

	list, err := h.ruleSvc.ListEscalationRules(ctx, adminSession)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSLAPolicyOnePerPriority(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.ruleSvc.CreateSLAPolicy(ctx, adminSession, SLAPolicyInput{Name: "High", Priority: domain.PriorityHigh, ResponseTime: 60, ResolutionTime: 240})
	require.NoError(t, err)
	assert.True(t, first.Enabled)

	_, err = h.ruleSvc.CreateSLAPolicy(ctx, adminSession, SLAPolicyInput{Name: "High 2", Priority: domain.PriorityHigh, ResolutionTime: 120})
	assert.Equal(t, "CONFLICT", errorCode(err))

	disabled, err := h.ruleSvc.CreateSLAPolicy(ctx, adminSession, SLAPolicyInput{Name: "High draft", Priority: domain.PriorityHigh, ResolutionTime: 120, Enabled: ptr(false)})
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	_, err = h.ruleSvc.UpdateSLAPolicy(ctx, adminSession, disabled.ID, SLAPolicyInput{Name: "High draft", Priority: domain.PriorityHigh, ResolutionTime: 120, Enabled: ptr(true)})
	assert.Equal(t, "CONFLICT", errorCode(err))

	_, err = h.ruleSvc.UpdateSLAPolicy(ctx, adminSession, first.ID, SLAPolicyInput{Name: "High", Priority: domain.PriorityHigh, ResolutionTime: 300})
	require.NoError(t, err)

	_, err = h.ruleSvc.CreateSLAPolicy(ctx, adminSession, SLAPolicyInput{Name: "Bad", Priority: "urgent"})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	_, err = h.ruleSvc.ListSLAPolicies(ctx, agentSession)
	assert.Equal(t, "FORBIDDEN", errorCode(err))
}

func TestTeamMembershipAndLeader(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	team, err := h.ruleSvc.CreateTeam(ctx, adminSession, TeamInput{Name: " Service Desk "})
	require.NoError(t, err)
	assert.Equal(t, "Service Desk", team.Name)

	_, err = h.ruleSvc.AddTeamMember(ctx, adminSession, team.ID, "req", domain.TeamRoleMember)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	_, err = h.ruleSvc.AddTeamMember(ctx, adminSession, team.ID, "alice", "")
	require.NoError(t, err)
	_, err = h.ruleSvc.AddTeamMember(ctx, adminSession, team.ID, "bob", domain.TeamRoleLeader)
	require.NoError(t, err)

	teams, err := h.ruleSvc.ListTeams(ctx, adminSession)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.NotNil(t, teams[0].Team.LeaderID)
	assert.Equal(t, "bob", *teams[0].Team.LeaderID)
	require.Len(t, teams[0].Members, 2)
	assert.Equal(t, "alice", teams[0].Members[0].UserID)

	require.NoError(t, h.ruleSvc.RemoveTeamMember(ctx, adminSession, team.ID, "bob"))
	stored, err := h.teams.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LeaderID)

	err = h.ruleSvc.RemoveTeamMember(ctx, adminSession, team.ID, "bob")
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	require.NoError(t, h.ruleSvc.DeleteTeam(ctx, adminSession, team.ID))
	err = h.ruleSvc.DeleteTeam(ctx, adminSession, team.ID)
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}
