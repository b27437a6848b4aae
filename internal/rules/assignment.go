package rules

import "github.com/spec-kit/servicedesk/internal/domain"

// TicketFields are the ticket attributes assignment rules match on.
type TicketFields struct {
	Category string
	Priority domain.Priority
	Type     domain.TicketType
}

// FieldsOf extracts the matchable fields from a ticket.
func FieldsOf(t domain.Ticket) TicketFields {
	return TicketFields{Category: t.Category, Priority: t.Priority, Type: t.Type}
}

// Matches reports whether every non-empty condition list contains the
// ticket's corresponding field.
func Matches(cond domain.AssignmentConditions, t TicketFields) bool {
	if len(cond.Categories) > 0 && !contains(cond.Categories, t.Category) {
		return false
	}
	if len(cond.Priorities) > 0 && !contains(cond.Priorities, t.Priority) {
		return false
	}
	if len(cond.Types) > 0 && !contains(cond.Types, t.Type) {
		return false
	}
	return true
}

// FirstMatch returns the first active rule, in evaluation order, whose
// conditions match the ticket.
func FirstMatch(t TicketFields, rules []domain.AssignmentRule) (domain.AssignmentRule, bool) {
	for _, rule := range OrderAssignmentRules(rules) {
		if Matches(rule.Conditions, t) {
			return rule, true
		}
	}
	return domain.AssignmentRule{}, false
}

// ResolveTarget dereferences a target to a user ID. Agent targets are
// returned as-is; team targets yield the team leader; round-robin targets
// yield the least-loaded member. A missing team or leader resolves to none.
func ResolveTarget(target domain.AssignTarget, dir Directory) (string, bool) {
	switch target.Type {
	case domain.TargetAgent:
		if target.AgentID == "" {
			return "", false
		}
		return target.AgentID, true
	case domain.TargetTeam:
		team, ok := dir.Teams[target.TeamID]
		if !ok || team.LeaderID == nil || *team.LeaderID == "" {
			return "", false
		}
		return *team.LeaderID, true
	case domain.TargetRoundRobin:
		if _, ok := dir.Teams[target.TeamID]; !ok {
			return "", false
		}
		return SelectRoundRobin(dir.Members[target.TeamID], dir.OpenCounts)
	}
	return "", false
}

// ResolveAssignment picks the assignee for a ticket. The first matching rule
// decides the outcome even when its target resolves to none; later rules are
// not consulted.
func ResolveAssignment(t TicketFields, rules []domain.AssignmentRule, dir Directory) (string, bool) {
	rule, ok := FirstMatch(t, rules)
	if !ok {
		return "", false
	}
	return ResolveTarget(rule.AssignTo, dir)
}
