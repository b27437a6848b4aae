package rules

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EscalationMatches reports whether all of the rule's clauses hold for the
// ticket at now.
func EscalationMatches(cond domain.EscalationConditions, t domain.Ticket, now time.Time) bool {
	if len(cond.Priorities) > 0 && !contains(cond.Priorities, t.Priority) {
		return false
	}
	if len(cond.Statuses) > 0 && !contains(cond.Statuses, t.Status) {
		return false
	}
	if cond.OverdueBy != nil {
		if t.SLADeadline == nil {
			return false
		}
		if now.Sub(*t.SLADeadline) < time.Duration(*cond.OverdueBy)*time.Minute {
			return false
		}
	}
	return true
}

// Evaluate plans escalation actions. Terminal tickets are skipped, and only
// the first matching active rule per ticket contributes a bundle. Tickets
// matching nothing produce no bundle.
func Evaluate(tickets []domain.Ticket, rules []domain.EscalationRule, dir Directory, now time.Time) []domain.EscalationAction {
	ordered := OrderEscalationRules(rules)
	var out []domain.EscalationAction
	for _, t := range tickets {
		if t.Status.IsTerminal() {
			continue
		}
		for _, rule := range ordered {
			if !EscalationMatches(rule.Conditions, t, now) {
				continue
			}
			out = append(out, plan(t, rule, dir))
			break
		}
	}
	return out
}

func plan(t domain.Ticket, rule domain.EscalationRule, dir Directory) domain.EscalationAction {
	action := domain.EscalationAction{
		TicketID:      t.ID,
		RuleID:        rule.ID,
		NotifyUserIDs: notifyList(rule.Actions, dir),
	}
	if target := rule.Actions.ReassignTo; target != nil {
		if userID, ok := ResolveTarget(*target, dir); ok {
			action.ReassignTo = &userID
		}
	}
	if p := rule.Actions.ChangePriority; p != nil {
		np := *p
		action.NewPriority = &np
	}
	if rule.Actions.AddComment != "" {
		text := rule.Actions.AddComment
		action.CommentText = &text
	}
	return action
}

// notifyList is NotifyUsers followed by members of NotifyTeams, first
// occurrence kept. Unknown teams contribute nobody.
func notifyList(actions domain.EscalationActions, dir Directory) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range actions.NotifyUsers {
		add(id)
	}
	for _, teamID := range actions.NotifyTeams {
		for _, id := range dir.Members[teamID] {
			add(id)
		}
	}
	return out
}
