package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func intPtr(i int) *int { return &i }

func priorityPtr(p domain.Priority) *domain.Priority { return &p }

var deadline = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func openTicket(id string, p domain.Priority) domain.Ticket {
	d := deadline
	return domain.Ticket{ID: id, Priority: p, Status: domain.TicketStatusInProgress, SLADeadline: &d}
}

func criticalOverdueRule() domain.EscalationRule {
	return domain.EscalationRule{
		ID:       "crit-60",
		IsActive: true,
		Priority: 1,
		Conditions: domain.EscalationConditions{
			Priorities: []domain.Priority{domain.PriorityCritical},
			OverdueBy:  intPtr(60),
		},
		Actions: domain.EscalationActions{ChangePriority: priorityPtr(domain.PriorityCritical)},
	}
}

func TestEvaluate_CriticalOverdueThreshold(t *testing.T) {
	rules := []domain.EscalationRule{criticalOverdueRule()}
	tickets := []domain.Ticket{openTicket("t1", domain.PriorityCritical)}

	got := Evaluate(tickets, rules, Directory{}, deadline.Add(59*time.Minute))
	assert.Empty(t, got)

	got = Evaluate(tickets, rules, Directory{}, deadline.Add(61*time.Minute))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TicketID)
	assert.Equal(t, "crit-60", got[0].RuleID)
	require.NotNil(t, got[0].NewPriority)
	assert.Equal(t, domain.PriorityCritical, *got[0].NewPriority)
}

func TestEvaluate_ClausesAreANDed(t *testing.T) {
	rules := []domain.EscalationRule{criticalOverdueRule()}

	// Right priority, not overdue enough.
	got := Evaluate([]domain.Ticket{openTicket("crit", domain.PriorityCritical)}, rules, Directory{}, deadline.Add(30*time.Minute))
	assert.Empty(t, got)

	// Overdue enough, wrong priority.
	got = Evaluate([]domain.Ticket{openTicket("high", domain.PriorityHigh)}, rules, Directory{}, deadline.Add(90*time.Minute))
	assert.Empty(t, got)

	// Both hold.
	got = Evaluate([]domain.Ticket{openTicket("crit", domain.PriorityCritical)}, rules, Directory{}, deadline.Add(90*time.Minute))
	assert.Len(t, got, 1)
}

func TestEvaluate_OverdueExactlyAtThreshold(t *testing.T) {
	rules := []domain.EscalationRule{criticalOverdueRule()}
	got := Evaluate([]domain.Ticket{openTicket("t", domain.PriorityCritical)}, rules, Directory{}, deadline.Add(60*time.Minute))
	assert.Len(t, got, 1)
}

func TestEvaluate_NoDeadlineNeverOverdue(t *testing.T) {
	ticket := openTicket("t", domain.PriorityCritical)
	ticket.SLADeadline = nil
	got := Evaluate([]domain.Ticket{ticket}, []domain.EscalationRule{criticalOverdueRule()}, Directory{}, deadline.Add(24*time.Hour))
	assert.Empty(t, got)
}

func TestEvaluate_StatusClause(t *testing.T) {
	rule := domain.EscalationRule{
		ID:         "hold",
		IsActive:   true,
		Conditions: domain.EscalationConditions{Statuses: []domain.TicketStatus{domain.TicketStatusOnHold}},
		Actions:    domain.EscalationActions{AddComment: "still on hold"},
	}
	onHold := openTicket("a", domain.PriorityLow)
	onHold.Status = domain.TicketStatusOnHold
	working := openTicket("b", domain.PriorityLow)

	got := Evaluate([]domain.Ticket{onHold, working}, []domain.EscalationRule{rule}, Directory{}, deadline)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].TicketID)
	require.NotNil(t, got[0].CommentText)
	assert.Equal(t, "still on hold", *got[0].CommentText)
}

func TestEvaluate_SkipsTerminalTickets(t *testing.T) {
	rule := domain.EscalationRule{ID: "any", IsActive: true, Actions: domain.EscalationActions{AddComment: "x"}}
	var tickets []domain.Ticket
	for _, st := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusRejected} {
		tk := openTicket(string(st), domain.PriorityLow)
		tk.Status = st
		tickets = append(tickets, tk)
	}
	approval := openTicket("approval", domain.PriorityLow)
	approval.Status = domain.TicketStatusNeedApproval
	tickets = append(tickets, approval)

	got := Evaluate(tickets, []domain.EscalationRule{rule}, Directory{}, deadline)
	require.Len(t, got, 1)
	assert.Equal(t, "approval", got[0].TicketID)
}

func TestEvaluate_OnlyFirstMatchingRulePerTicket(t *testing.T) {
	low := domain.EscalationRule{ID: "low", IsActive: true, Priority: 1, Actions: domain.EscalationActions{AddComment: "first"}}
	high := domain.EscalationRule{ID: "high", IsActive: true, Priority: 2, Actions: domain.EscalationActions{AddComment: "second"}}
	inactive := domain.EscalationRule{ID: "inactive", IsActive: false, Priority: 0, Actions: domain.EscalationActions{AddComment: "never"}}

	got := Evaluate([]domain.Ticket{openTicket("t", domain.PriorityLow)}, []domain.EscalationRule{high, inactive, low}, Directory{}, deadline)
	require.Len(t, got, 1)
	assert.Equal(t, "low", got[0].RuleID)
}

func TestEvaluate_ReassignAndNotifyFanOut(t *testing.T) {
	dir := NewDirectory(
		[]domain.Team{{ID: "ops", LeaderID: strPtr("lead")}, {ID: "sec"}},
		[]domain.TeamMember{
			{TeamID: "ops", UserID: "lead"},
			{TeamID: "ops", UserID: "o1"},
			{TeamID: "sec", UserID: "s1"},
			{TeamID: "sec", UserID: "o1"},
		},
		map[string]int{"s1": 4, "o1": 2},
	)
	rule := domain.EscalationRule{
		ID:       "fan",
		IsActive: true,
		Actions: domain.EscalationActions{
			NotifyUsers: []string{"manager", "o1"},
			NotifyTeams: []string{"sec", "missing"},
			ReassignTo:  &domain.AssignTarget{Type: domain.TargetRoundRobin, TeamID: "sec"},
		},
	}

	got := Evaluate([]domain.Ticket{openTicket("t", domain.PriorityHigh)}, []domain.EscalationRule{rule}, dir, deadline)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"manager", "o1", "s1"}, got[0].NotifyUserIDs)
	require.NotNil(t, got[0].ReassignTo)
	assert.Equal(t, "o1", *got[0].ReassignTo)
	assert.Nil(t, got[0].NewPriority)
	assert.Nil(t, got[0].CommentText)
}

func TestEvaluate_ReassignToDeletedTeamIsDropped(t *testing.T) {
	rule := domain.EscalationRule{
		ID:       "r",
		IsActive: true,
		Actions: domain.EscalationActions{
			ReassignTo: &domain.AssignTarget{Type: domain.TargetTeam, TeamID: "deleted"},
			AddComment: "escalated",
		},
	}
	got := Evaluate([]domain.Ticket{openTicket("t", domain.PriorityHigh)}, []domain.EscalationRule{rule}, Directory{}, deadline)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ReassignTo)
	assert.NotNil(t, got[0].CommentText)
}

func TestEvaluate_ChangePriorityKeepsDeadline(t *testing.T) {
	ticket := openTicket("t", domain.PriorityLow)
	before := *ticket.SLADeadline
	rule := domain.EscalationRule{ID: "bump", IsActive: true, Actions: domain.EscalationActions{ChangePriority: priorityPtr(domain.PriorityHigh)}}

	got := Evaluate([]domain.Ticket{ticket}, []domain.EscalationRule{rule}, Directory{}, deadline)
	require.Len(t, got, 1)
	assert.Equal(t, before, *ticket.SLADeadline)
}
