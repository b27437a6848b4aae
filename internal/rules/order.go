package rules

import (
	"sort"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ruleKey carries the ordering fields shared by assignment and escalation
// rules.
type ruleKey struct {
	priority  int
	createdAt time.Time
	id        string
}

// less orders by priority ascending, then creation time, then ID, so equal
// priorities never depend on storage iteration order.
func (a ruleKey) less(b ruleKey) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.id < b.id
}

// OrderAssignmentRules returns the active rules in evaluation order.
func OrderAssignmentRules(rules []domain.AssignmentRule) []domain.AssignmentRule {
	out := make([]domain.AssignmentRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ruleKey{out[i].Priority, out[i].CreatedAt, out[i].ID}.less(ruleKey{out[j].Priority, out[j].CreatedAt, out[j].ID})
	})
	return out
}

// OrderEscalationRules returns the active rules in evaluation order.
func OrderEscalationRules(rules []domain.EscalationRule) []domain.EscalationRule {
	out := make([]domain.EscalationRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ruleKey{out[i].Priority, out[i].CreatedAt, out[i].ID}.less(ruleKey{out[j].Priority, out[j].CreatedAt, out[j].ID})
	})
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
