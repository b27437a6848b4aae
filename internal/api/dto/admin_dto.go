package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AssignmentRuleRequest payload.
type AssignmentRuleRequest struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	IsActive    *bool                       `json:"is_active"`
	Priority    int                         `json:"priority"`
	Conditions  domain.AssignmentConditions `json:"conditions"`
	AssignTo    domain.AssignTarget         `json:"assign_to"`
}

// AssignmentRuleResponse is the wire shape of an assignment rule.
type AssignmentRuleResponse struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	IsActive    bool                        `json:"is_active"`
	Priority    int                         `json:"priority"`
	Conditions  domain.AssignmentConditions `json:"conditions"`
	AssignTo    domain.AssignTarget         `json:"assign_to"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// EscalationRuleRequest payload.
type EscalationRuleRequest struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	IsActive    *bool                       `json:"is_active"`
	Priority    int                         `json:"priority"`
	Conditions  domain.EscalationConditions `json:"conditions"`
	Actions     domain.EscalationActions    `json:"actions"`
}

// EscalationRuleResponse is the wire shape of an escalation rule.
type EscalationRuleResponse struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	IsActive    bool                        `json:"is_active"`
	Priority    int                         `json:"priority"`
	Conditions  domain.EscalationConditions `json:"conditions"`
	Actions     domain.EscalationActions    `json:"actions"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// SLAPolicyRequest payload. Times are minutes.
type SLAPolicyRequest struct {
	Name           string          `json:"name"`
	Priority       domain.Priority `json:"priority"`
	ResponseTime   int             `json:"response_time"`
	ResolutionTime int             `json:"resolution_time"`
	Enabled        *bool           `json:"enabled"`
}

// SLAPolicyResponse is the wire shape of a policy.
type SLAPolicyResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Priority       domain.Priority `json:"priority"`
	ResponseTime   int             `json:"response_time"`
	ResolutionTime int             `json:"resolution_time"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TeamRequest payload.
type TeamRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	LeaderID    *string `json:"leader_id"`
}

// TeamMemberRequest payload.
type TeamMemberRequest struct {
	UserID string          `json:"user_id"`
	Role   domain.TeamRole `json:"role"`
}

// TeamMemberResponse describes a membership.
type TeamMemberResponse struct {
	UserID   string          `json:"user_id"`
	Role     domain.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// TeamResponse is a team with its members in join order.
type TeamResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	LeaderID    *string              `json:"leader_id"`
	Members     []TeamMemberResponse `json:"members"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewAssignmentRuleResponse maps a rule.
func NewAssignmentRuleResponse(r *domain.AssignmentRule) AssignmentRuleResponse {
	return AssignmentRuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		Priority:    r.Priority,
		Conditions:  r.Conditions,
		AssignTo:    r.AssignTo,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewEscalationRuleResponse maps a rule.
func NewEscalationRuleResponse(r *domain.EscalationRule) EscalationRuleResponse {
	return EscalationRuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		Priority:    r.Priority,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewSLAPolicyResponse maps a policy.
func NewSLAPolicyResponse(p *domain.SLAPolicy) SLAPolicyResponse {
	return SLAPolicyResponse{
		ID:             p.ID,
		Name:           p.Name,
		Priority:       p.Priority,
		ResponseTime:   p.ResponseTime,
		ResolutionTime: p.ResolutionTime,
		Enabled:        p.Enabled,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// NewTeamResponse maps a team and its members.
func NewTeamResponse(t *domain.Team, members []domain.TeamMember) TeamResponse {
	list := make([]TeamMemberResponse, 0, len(members))
	for _, m := range members {
		list = append(list, TeamMemberResponse{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		LeaderID:    t.LeaderID,
		Members:     list,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
