package domain

import "time"

// TargetType selects how an assignment target resolves to a user.
type TargetType string

const (
	TargetAgent      TargetType = "agent"
	TargetTeam       TargetType = "team"
	TargetRoundRobin TargetType = "round_robin"
)

// Valid reports whether the target type is known.
func (t TargetType) Valid() bool {
	switch t {
	case TargetAgent, TargetTeam, TargetRoundRobin:
		return true
	}
	return false
}

// AssignTarget names who a matching rule hands the ticket to. AgentID is set
// for agent targets, TeamID for team and round_robin targets.
type AssignTarget struct {
	Type    TargetType `json:"type"`
	AgentID string     `json:"agent_id,omitempty"`
	TeamID  string     `json:"team_id,omitempty"`
}

// AssignmentConditions restrict which tickets a rule applies to. An empty
// list places no restriction on that field.
type AssignmentConditions struct {
	Categories []string     `json:"categories"`
	Priorities []Priority   `json:"priorities"`
	Types      []TicketType `json:"types"`
}

// AssignmentRule routes new tickets to an agent or team.
type AssignmentRule struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Priority    int
	Conditions  AssignmentConditions
	AssignTo    AssignTarget
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
