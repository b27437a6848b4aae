package domain

import "time"

// TeamRole is a member's role inside a team.
type TeamRole string

const (
	TeamRoleMember TeamRole = "member"
	TeamRoleLeader TeamRole = "leader"
)

// Team groups agents for assignment and escalation targets.
type Team struct {
	ID          string
	Name        string
	Description string
	LeaderID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TeamMember links a user to a team. Member order is join order.
type TeamMember struct {
	TeamID   string
	UserID   string
	Role     TeamRole
	JoinedAt time.Time
}
